package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/rulcast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.SessionIdleTTLSec, convey.ShouldEqual, 1800)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RULCAST_ADDR", ":8080")
			_ = os.Setenv("RULCAST_PREDICTOR_URL", "https://predictive-backend.example.com/predict")
			_ = os.Setenv("RULCAST_PREDICTOR_TIMEOUT_MS", "2500")
			_ = os.Setenv("RULCAST_QUEUE_SIZE", "64")
			_ = os.Setenv("RULCAST_WORKER_COUNT", "3")
			_ = os.Setenv("RULCAST_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PredictorURL, convey.ShouldEqual, "https://predictive-backend.example.com/predict")
				convey.So(cfg.PredictorTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# local prediction backend
addr: ":9090"
predictor_url: "http://localhost:5000/predict"
max_sessions: 10
session_idle_ttl_s: 0
notification_buffer: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RULCAST_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PredictorURL, convey.ShouldEqual, "http://localhost:5000/predict")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 10)
				convey.So(cfg.SessionIdleTTLSec, convey.ShouldEqual, 0)
				convey.So(cfg.NotificationBuffer, convey.ShouldEqual, 4)
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 24\nmax_sessions: 50\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RULCAST_CONFIG", tmpFile)
			_ = os.Setenv("RULCAST_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RULCAST_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("RULCAST_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RULCAST_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("RULCAST_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When loading config with a relative predictor url", func() {
			_ = os.Setenv("RULCAST_PREDICTOR_URL", "/predict")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "predictor_url")
			})
		})

		convey.Convey("When loading config with zero workers", func() {
			_ = os.Setenv("RULCAST_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with an unknown log format", func() {
			_ = os.Setenv("RULCAST_LOG_FORMAT", "xml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"RULCAST_CONFIG",
		"RULCAST_ADDR",
		"RULCAST_LOG_LEVEL",
		"RULCAST_LOG_FORMAT",
		"RULCAST_PREDICTOR_URL",
		"RULCAST_PREDICTOR_TIMEOUT_MS",
		"RULCAST_QUEUE_SIZE",
		"RULCAST_WORKER_COUNT",
		"RULCAST_MAX_SESSIONS",
		"RULCAST_SESSION_IDLE_TTL_S",
		"RULCAST_NOTIFICATION_BUFFER",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "rulcast-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
