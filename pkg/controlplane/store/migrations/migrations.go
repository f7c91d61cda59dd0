// Package migrations embeds the PostgreSQL schema migrations applied by
// golang-migrate before the store opens its GORM connection.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
