package database

import "embed"

// MigrationsFS holds the goose migrations, under "migrations".
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

const MigrationsDir = "migrations"
