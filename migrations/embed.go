// Package migrations embeds SQL migration files into the binary, so the
// gateway can run schema migrations without SQL files present on the
// host filesystem.
package migrations

import (
	"embed"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files are at the root of the embedded FS
}
