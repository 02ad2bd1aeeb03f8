// Package migrations embeds the schema evolution steps for each supported driver.
//
// Files are named FFF_TTT_name.sql: the step upgrades a store recorded at
// version FFF straight to version TTT. ${today} expands to the date the
// upgrade runs.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
