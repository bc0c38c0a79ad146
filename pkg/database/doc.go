// Package database owns the Postgres connection pool, the schema migrations
// and the scoped transaction helper every multi-step mutation runs in.
//
//	db, err := database.Open(ctx, cfg.Database)
//	err = database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
//		// every statement here commits or rolls back together
//	})
package database
