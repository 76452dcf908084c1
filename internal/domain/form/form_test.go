package form_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/okian/rulcast/internal/domain/form"
	"github.com/okian/rulcast/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

// filled returns a state where every field holds a distinct valid number.
func filled(t *testing.T) form.State {
	t.Helper()
	s := form.Initialize()
	for i, k := range schema.Keys() {
		var err error
		s, err = form.SetField(s, k, strconv.Itoa(i)+".5")
		if err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	return s
}

func TestInitialize(t *testing.T) {
	Convey("Given a freshly initialized form", t, func() {
		s := form.Initialize()

		Convey("Then it should hold every schema key with an empty value", func() {
			So(s.Len(), ShouldEqual, schema.Count)
			for _, k := range schema.Keys() {
				v, ok := s.Get(k)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "")
			}
		})

		Convey("And Reset should produce the same shape", func() {
			So(form.Reset().Values(), ShouldResemble, s.Values())
		})
	})
}

func TestSetField(t *testing.T) {
	Convey("Given an initialized form", t, func() {
		s := form.Initialize()

		Convey("When setting a known field", func() {
			next, err := form.SetField(s, "op_setting_2", "0.0019")

			Convey("Then the new state should carry the value", func() {
				So(err, ShouldBeNil)
				v, _ := next.Get("op_setting_2")
				So(v, ShouldEqual, "0.0019")
			})

			Convey("And the original state should be untouched", func() {
				v, _ := s.Get("op_setting_2")
				So(v, ShouldEqual, "")
			})
		})

		Convey("When setting the same field several times", func() {
			next, _ := form.SetField(s, "sensor_measurement_7", "1")
			next, _ = form.SetField(next, "sensor_measurement_7", "2")
			next, _ = form.SetField(next, "sensor_measurement_8", "3")
			next, _ = form.SetField(next, "sensor_measurement_7", "554.36")

			Convey("Then the latest value should win and no keys should be added", func() {
				v, _ := next.Get("sensor_measurement_7")
				So(v, ShouldEqual, "554.36")
				v, _ = next.Get("sensor_measurement_8")
				So(v, ShouldEqual, "3")
				So(next.Len(), ShouldEqual, schema.Count)
			})
		})

		Convey("When setting an unknown field", func() {
			next, err := form.SetField(s, "sensor_measurement_22", "1")

			Convey("Then it should fail loudly and leave the state unchanged", func() {
				So(errors.Is(err, form.ErrUnknownField), ShouldBeTrue)
				var ufe *form.UnknownFieldError
				So(errors.As(err, &ufe), ShouldBeTrue)
				So(ufe.Key, ShouldEqual, "sensor_measurement_22")
				So(next.Len(), ShouldEqual, schema.Count)
				_, ok := next.Get("sensor_measurement_22")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the caller mutates the Values copy", func() {
			vals := s.Values()
			vals["op_setting_1"] = "9"

			Convey("Then the state should not change", func() {
				v, _ := s.Get("op_setting_1")
				So(v, ShouldEqual, "")
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given form states", t, func() {
		Convey("When all 24 fields hold valid numbers", func() {
			So(form.Validate(filled(t)), ShouldBeNil)
		})

		Convey("When accepted notations are used", func() {
			s := filled(t)
			for _, raw := range []string{"1e3", " 42.5 ", "-0.0007", "+3", ".25", "518.67"} {
				s, _ = form.SetField(s, "sensor_measurement_1", raw)
				So(form.Validate(s), ShouldBeNil)
			}
		})

		Convey("When one field is empty", func() {
			s, _ := form.SetField(filled(t), "sensor_measurement_9", "")
			err := form.Validate(s)

			Convey("Then validation should fail listing that key", func() {
				var ve *form.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Keys, ShouldResemble, []string{"sensor_measurement_9"})
				So(errors.Is(err, form.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a field is blank or non-numeric", func() {
			for _, raw := range []string{"   ", "abc", "NaN", "Inf", "-Infinity", "0x10", "1,5", "12abc", "1e400"} {
				s, _ := form.SetField(filled(t), "op_setting_3", raw)
				err := form.Validate(s)
				So(err, ShouldNotBeNil)
				So(err.(*form.ValidationError).Keys, ShouldResemble, []string{"op_setting_3"})
			}
		})

		Convey("When a field carries an exponent far outside the float64 range", func() {
			start := time.Now()
			for _, raw := range []string{"1e-50000000", "1e-2000000000", "1e2000000000", "-1e-400", "1e-3000000000"} {
				s, _ := form.SetField(filled(t), "op_setting_1", raw)
				err := form.Validate(s)
				So(err, ShouldNotBeNil)
				So(err.(*form.ValidationError).Keys, ShouldResemble, []string{"op_setting_1"})

				_, err = form.Serialize(s)
				So(errors.Is(err, form.ErrSerialization), ShouldBeTrue)
			}

			Convey("Then it is rejected without expanding the exponent", func() {
				So(time.Since(start) < time.Second, ShouldBeTrue)
			})
		})

		Convey("When a value sits at the edge of the float64 range", func() {
			for _, raw := range []string{"0", "-0.000", "0e-99999", "1.7e308", "5e-324"} {
				_, err := form.ParseNumber(raw)
				So(err, ShouldBeNil)
			}
		})

		Convey("When several fields are invalid", func() {
			s, _ := form.SetField(filled(t), "sensor_measurement_21", "x")
			s, _ = form.SetField(s, "op_setting_1", "")

			Convey("Then keys should be reported in schema order", func() {
				err := form.Validate(s).(*form.ValidationError)
				So(err.Keys, ShouldResemble, []string{"op_setting_1", "sensor_measurement_21"})
				So(err.Error(), ShouldContainSubstring, "op_setting_1, sensor_measurement_21")
			})
		})

		Convey("When nothing has been entered", func() {
			err := form.Validate(form.Initialize()).(*form.ValidationError)
			So(len(err.Keys), ShouldEqual, schema.Count)
		})
	})
}

func TestSerialize(t *testing.T) {
	Convey("Given a valid form", t, func() {
		s, _ := form.SetField(filled(t), "sensor_measurement_2", " 641.82 ")
		payload, err := form.Serialize(s)

		Convey("Then every key should map to its number", func() {
			So(err, ShouldBeNil)
			So(len(payload), ShouldEqual, schema.Count)
			So(payload["sensor_measurement_2"], ShouldEqual, 641.82)
			So(payload["op_setting_1"], ShouldEqual, 0.5)
		})
	})

	Convey("Given an invalid form", t, func() {
		_, err := form.Serialize(form.Initialize())

		Convey("Then serialization should fail", func() {
			So(errors.Is(err, form.ErrSerialization), ShouldBeTrue)
			var se *form.SerializationError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Key, ShouldEqual, "op_setting_1")
		})
	})
}
