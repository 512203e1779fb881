// Package migrations embeds the bridge's SQL migration files so the binary
// can create its schema without the files on disk.
package migrations

import "embed"

// FS holds every migration at its root, ready for database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
