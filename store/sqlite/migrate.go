package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/GuiaBolso/darwin"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Migrations returns the embedded schema migrations. Files are named
// <version>_<description>.sql.
func Migrations() ([]darwin.Migration, error) {
	entries, err := sqlFiles.ReadDir("sql")
	if err != nil {
		return nil, err
	}

	migrations := make([]darwin.Migration, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		base := strings.TrimSuffix(name, path.Ext(name))
		versionPart, description, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected <version>_<description>.sql", name)
		}
		version, err := strconv.ParseFloat(versionPart, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version: %w", name, err)
		}
		script, err := sqlFiles.ReadFile("sql/" + name)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, darwin.Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			Script:      string(script),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrate applies pending migrations to db.
func Migrate(db *sql.DB) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	d := darwin.New(darwin.NewGenericDriver(db, darwin.SqliteDialect{}), migrations, nil)
	return d.Migrate()
}
