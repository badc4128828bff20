// Package database provides the node's local SQLite store.
//
// The store holds durable flags that must survive a restart, most
// importantly the "firmware update pending" flag. Schema changes are
// embedded SQL migrations applied at startup.
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
