package api

import (
	"net/http"

	"github.com/platinummonkey/huddle/pkg/httputil"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/users"
)

// UserHandlers handles user requests
type UserHandlers struct {
	users UserService
}

// NewUserHandlers creates a new UserHandlers
func NewUserHandlers(svc UserService) *UserHandlers {
	return &UserHandlers{users: svc}
}

// userResponse adds the derived platforms to a user
type userResponse struct {
	*users.User
	Platforms []users.Platform `json:"platforms"`
}

func newUserResponse(u *users.User) userResponse {
	return userResponse{User: u, Platforms: u.Platforms()}
}

// ListUsers lists users
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, order, err := parseListParams(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	filter, err := parseUserFilter(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	result, err := h.users.List(r.Context(), page, order, filter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	items := make([]userResponse, len(result.Items))
	for i := range result.Items {
		items[i] = newUserResponse(&result.Items[i])
	}
	httputil.WriteSuccess(w, query.Page[userResponse]{
		Items:       items,
		TotalCount:  result.TotalCount,
		Offset:      result.Offset,
		Limit:       result.Limit,
		HasNextPage: result.HasNextPage,
	})
}

// GetUser retrieves a user by ID
func (h *UserHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(u))
}

// UpdateUser updates a user's profile
func (h *UserHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var in users.UpdateInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(u))
}

// UpdateParentalApproval records a parent's decision for a child
func (h *UserHandlers) UpdateParentalApproval(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var in users.ParentalApprovalInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	ok, err := h.users.UpdateParentalApproval(r.Context(), id, in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": ok})
}

// ListRoles lists a user's roles, optionally filtered by status
func (h *UserHandlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	status, err := parseStatus(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	roles, err := h.users.ListRoles(r.Context(), id, status)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func parseUserFilter(r *http.Request) (users.Filter, error) {
	from, err := users.ParseFrom(httputil.ParseQueryString(r, "from", ""))
	if err != nil {
		return users.Filter{}, err
	}

	filter := users.Filter{
		From:   from,
		FromID: httputil.ParseQueryString(r, "fromId", ""),
		Search: httputil.ParseQueryString(r, "search", ""),
	}
	if _, ok := r.URL.Query()["roles"]; ok {
		filter.Roles = []rbac.RoleType{}
		for _, raw := range httputil.ParseQueryList(r, "roles") {
			t, err := rbac.ParseRoleType(raw)
			if err != nil {
				return users.Filter{}, err
			}
			filter.Roles = append(filter.Roles, t)
		}
	}
	return filter, nil
}

// parseListParams reads offset, limit and order
func parseListParams(r *http.Request) (query.PageRequest, query.Order, error) {
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return query.PageRequest{}, nil, err
	}
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		return query.PageRequest{}, nil, err
	}
	order, err := query.ParseOrder(httputil.ParseQueryString(r, "order", ""))
	if err != nil {
		return query.PageRequest{}, nil, err
	}
	return query.PageRequest{Offset: offset, Limit: limit}, order, nil
}

func parseStatus(r *http.Request) (*rbac.RoleStatus, error) {
	raw := httputil.ParseQueryString(r, "status", "")
	if raw == "" {
		return nil, nil
	}
	status, err := rbac.ParseRoleStatus(raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
