// Package migrations embeds SQL migration files.
package migrations

import "embed"

// DirectoryFS contains the migrations for the tenant directory schema.
//
//go:embed directory/*.sql
var DirectoryFS embed.FS

// DirectoryDir is the directory within DirectoryFS where migrations live.
const DirectoryDir = "directory"
