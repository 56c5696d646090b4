// Package migrations embeds SQL migration files for the SQLite stores.
// File names follow "<store>_<version>_<name>.up.sql"; each store runs
// only its own prefix against its own database file.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
