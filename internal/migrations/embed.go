package migrations

import "embed"

// FS holds the per-dialect migration directories. Callers fs.Sub into the
// dialect they opened.
//
//go:embed *
var FS embed.FS
