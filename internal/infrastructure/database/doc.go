// Package database provides SQLite connectivity for Customer Core.
//
// It wraps database/sql with the pragmas this service relies on (WAL,
// busy timeout, foreign keys), a single-connection pool matching
// SQLite's one-writer model, and a schema migration runner whose SQL
// files are embedded into the binary by the migrations package.
//
// Typical startup sequence:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or carry defaults,
// and columns are never dropped or renamed. Every migration ships an
// .up.sql and, where rollback is meaningful, a .down.sql.
package database
