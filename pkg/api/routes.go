package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route is one entry of the REST routing table
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler http.HandlerFunc
}

// Routes returns the static routing table. The GraphQL endpoint is
// registered separately because it is optional.
func Routes(u *UserHandlers, s *SchoolHandlers, c *ConfirmHandler) []Route {
	return []Route{
		{http.MethodGet, "/api/v1/users", "users", u.ListUsers},
		{http.MethodGet, "/api/v1/users/{id}", "user", u.GetUser},
		{http.MethodPatch, "/api/v1/users/{id}", "updateUser", u.UpdateUser},
		{http.MethodPost, "/api/v1/users/{id}/parental-approval", "updateUserParentalApproval", u.UpdateParentalApproval},
		{http.MethodGet, "/api/v1/users/{id}/roles", "userRoles", u.ListRoles},
		{http.MethodGet, "/api/v1/schools", "schools", s.ListSchools},
		{http.MethodGet, "/api/v1/schools/{id}", "school", s.GetSchool},
		{http.MethodPost, "/api/v1/schools", "createSchool", s.CreateSchool},
		{http.MethodPatch, "/api/v1/schools/{id}", "updateSchool", s.UpdateSchool},
		{http.MethodGet, "/api/confirm/{uuid}", "confirmEmail", c.Confirm},
	}
}

// RegisterRoutes adds routes to router
func RegisterRoutes(router *mux.Router, routes []Route) {
	for _, rt := range routes {
		router.HandleFunc(rt.Path, rt.Handler).Methods(rt.Method).Name(rt.Name)
	}
}
