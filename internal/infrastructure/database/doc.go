// Package database opens the SQLite file that holds door event history
// and applies schema migrations to it.
//
// Migrations are read from an fs.FS, normally migrations.FS, and are
// named YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql.
// Each runs in its own transaction and is recorded in schema_migrations.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
