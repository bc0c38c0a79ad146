// Package auth turns bearer tokens into request callers.
//
// # Tokens
//
// Two verifiers are supported:
//
//	SessionIssuer  - HS256 session tokens minted by huddle (cmd: huddle token)
//	OIDCVerifier   - ID tokens from an external OpenID Connect issuer
//
// A verifier returns an Identity: a user id for session tokens, a verified
// email for OIDC tokens.
//
// # Authentication
//
// Authenticator tries each verifier in order, caches successful verifications
// in an expirable LRU keyed by the token hash, and loads the caller with its
// current roles on every request:
//
//	authn := auth.NewAuthenticator(roleStore, auth.CacheConfig{Size: 10000, TTL: time.Minute}, sessions)
//	caller, err := authn.Authenticate(ctx, bearer)
//
// Roles are never cached across requests, so a role change is visible on the
// caller's next request.
//
// # Password tokens
//
// TokenGenerator mints the one-time password tokens handed out by the email
// confirmation route. Only the SHA256 hash is stored.
package auth
