// Package embedded provides assets compiled into the binary.
package embedded

import (
	"embed"
)

// Schemas contains the SQL schema files applied by database.Migrate.
// One file per logical database, named <database>_schema.sql.
//
//go:embed schemas/*.sql
var Schemas embed.FS
