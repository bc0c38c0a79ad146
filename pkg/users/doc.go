// Package users implements the user operations: listing, lookup, profile
// updates, parental approval and email confirmation, plus the user relations
// (roles, notification count) resolved through batched loaders.
package users
