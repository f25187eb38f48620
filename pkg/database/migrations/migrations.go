// Package migrations embeds the SQL schema applied by goose on first connect.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
