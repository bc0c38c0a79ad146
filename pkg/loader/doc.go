// Package loader batches and deduplicates entity and relation fetches within
// one operation.
//
// A Scope is the per-operation arena holding every loader used while
// resolving one request. Middleware creates it, attaches it to the request
// context and closes it when the request ends; loaders are never shared
// between requests.
//
// A Definition describes a loader once (name plus batch fetch) and is used
// from any resolver:
//
//	var usersByID = loader.NewEntityLoader("users.byID", store.UsersByIDs)
//	user, err := usersByID.Load(ctx, id)
//
// Entity keys are ids. Relation keys pair the owning id with the canonical
// JSON of the relation arguments, so roles(status: ACTIVE) and
// roles(status: PENDING) for the same user never share a result while
// identical requests are fetched once.
package loader
