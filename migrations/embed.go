// Package migrations compiles the SQL schema files into the binary, so a
// deployment needs no migration files on disk. Importing the package (a
// blank import from main) is enough to register them.
package migrations

import (
	"embed"

	"github.com/nerrad567/customer-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
