// Package migrations embeds the SQL migration files.
package migrations

import "embed"

// FS exposes the migration files to goose.
//
//go:embed *.sql
var FS embed.FS
