// Package migrations embeds the SQL migration files so the controller
// can migrate its database without shipping loose .sql files.
package migrations

import (
	"embed"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
