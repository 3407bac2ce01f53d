// Package migrations embeds the SQL schema for the purchase entry store.
package migrations

import "embed"

// Files holds every migration, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
