// Package migrations embeds the goose SQL migrations for the records ledger.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
