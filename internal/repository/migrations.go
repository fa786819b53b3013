package repository

import "embed"

// Migrations holds the goose SQL migrations, embedded so the binary carries
// its own schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS
