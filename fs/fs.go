// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
