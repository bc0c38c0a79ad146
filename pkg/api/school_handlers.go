package api

import (
	"net/http"

	"github.com/platinummonkey/huddle/pkg/httputil"
	"github.com/platinummonkey/huddle/pkg/schools"
)

// SchoolHandlers handles school requests
type SchoolHandlers struct {
	schools SchoolService
}

// NewSchoolHandlers creates a new SchoolHandlers
func NewSchoolHandlers(svc SchoolService) *SchoolHandlers {
	return &SchoolHandlers{schools: svc}
}

// ListSchools lists schools
func (h *SchoolHandlers) ListSchools(w http.ResponseWriter, r *http.Request) {
	page, order, err := parseListParams(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	result, err := h.schools.List(r.Context(), page, order, schools.Filter{
		Search: httputil.ParseQueryString(r, "search", ""),
	})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// GetSchool retrieves a school by ID
func (h *SchoolHandlers) GetSchool(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	school, err := h.schools.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, school)
}

// CreateSchool creates a school
func (h *SchoolHandlers) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var in schools.CreateInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	school, err := h.schools.Create(r.Context(), in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, school)
}

// UpdateSchool updates a school
func (h *SchoolHandlers) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var in schools.UpdateInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	school, err := h.schools.Update(r.Context(), id, in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, school)
}
