// Package migrations holds the postgres schema, applied with golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
