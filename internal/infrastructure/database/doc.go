// Package database provides SQLite storage for the thermostat bridge.
//
// The bridge keeps no adapter state across restarts. The database only
// holds the command log: an append-only record of every inbound command
// and whether it was written to the device or rejected.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql, and are registered by the migrations package.
package database
