// Package migrations embeds the journal schema so the agent needs no SQL
// files on the device.
package migrations

import "embed"

// FS holds every migration at its root.
//
//go:embed *.sql
var FS embed.FS
