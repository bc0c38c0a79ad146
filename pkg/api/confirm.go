package api

import (
	"net/http"
	"net/url"

	"github.com/platinummonkey/huddle/pkg/httputil"
)

// ConfirmHandler serves the link sent in confirmation emails
type ConfirmHandler struct {
	users  UserService
	webURL string
}

// NewConfirmHandler creates a ConfirmHandler redirecting into webURL
func NewConfirmHandler(svc UserService, webURL string) *ConfirmHandler {
	return &ConfirmHandler{users: svc, webURL: webURL}
}

// Confirm marks the email confirmed and redirects to account activation,
// or to login when the user already has a password
func (h *ConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	handle, err := httputil.ParsePathString(r, "uuid")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	result, err := h.users.ConfirmEmail(r.Context(), handle)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	target := h.webURL + "/auth/login"
	if result.PasswordToken != "" {
		target = h.webURL + "/auth/activate/" + url.PathEscape(result.PasswordToken)
	}
	http.Redirect(w, r, target, http.StatusFound)
}
