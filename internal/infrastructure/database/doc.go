// Package database opens the SQLite file behind the diagnostics journal
// and applies its schema migrations.
//
// The journal is optional and local to the device. It uses WAL mode so a
// reader (sqlite3 CLI during a field visit) never blocks the agent.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files live at the root of the supplied fs.FS and are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql.
package database
