// Package middleware provides the request middleware of the API server.
//
//   - AuthMiddleware resolves the bearer token to an rbac.Caller. Requests
//     without a token continue anonymously.
//   - LoaderScope attaches a fresh loader scope to each request and closes
//     it when the request ends.
//   - RateLimitMiddleware limits authenticated callers by user id and
//     anonymous callers by client address, using either the in-process
//     RateLimiter or the Redis backed DistributedRateLimiter. Limiter
//     failures let requests through.
package middleware
