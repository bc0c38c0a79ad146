// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, page)
//	httputil.WriteAppError(w, r, err) // 404, 403, 400, 409 or 500 from apperrors
//
// # Request Parsing
//
//	var input users.UpdateInput
//	if !httputil.ParseJSONOrError(w, r, &input) {
//		return // Error response already written
//	}
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//	roles := httputil.ParseQueryList(r, "roles")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
