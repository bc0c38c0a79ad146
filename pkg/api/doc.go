// Package api exposes the user and school operations over HTTP.
//
// # Overview
//
// Two transports share the same service layer:
//
//   - REST under /api/v1, routed by gorilla/mux from a static table (Routes)
//   - GraphQL at /graphql, served by graph-gophers/graphql-go from the SDL in
//     schema.graphql
//
// Both read the caller from the request context (set by
// middleware.AuthMiddleware) and rely on middleware.LoaderScope for batched
// relation loading. Errors are mapped through pkg/apperrors: REST answers
// with the matching status code, GraphQL reports the message with an
// extensions.code.
//
// # Routes
//
//	GET   /api/v1/users                           users
//	GET   /api/v1/users/{id}                      user
//	PATCH /api/v1/users/{id}                      updateUser
//	POST  /api/v1/users/{id}/parental-approval    updateUserParentalApproval
//	GET   /api/v1/users/{id}/roles                user roles
//	GET   /api/v1/schools                         schools
//	GET   /api/v1/schools/{id}                    school
//	POST  /api/v1/schools                         createSchool
//	PATCH /api/v1/schools/{id}                    updateSchool
//	GET   /api/confirm/{uuid}                     email confirmation redirect
//	POST  /graphql                                GraphQL
package api
