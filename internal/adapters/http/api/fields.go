package api

import (
	"net/http"

	"github.com/okian/rulcast/internal/domain/schema"
)

// FieldsProvider exposes the form schema.
type FieldsProvider interface {
	Fields() []schema.Field
}

// FieldsHandler serves the ordered form schema.
type FieldsHandler struct {
	deps FieldsProvider
}

// NewFieldsHandler creates a new fields handler.
func NewFieldsHandler(deps FieldsProvider) *FieldsHandler {
	return &FieldsHandler{deps: deps}
}

// HandleGetFields handles GET /api/fields requests.
func (h *FieldsHandler) HandleGetFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse{Fields: h.deps.Fields()})
}

type fieldsResponse struct {
	Fields []schema.Field `json:"fields"`
}
