package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
)

// Migrate applies the "*.up.sql" files of fsys in lexical order, or the
// "*.down.sql" files in reverse order when down is set. It returns the
// names of the applied files.
func Migrate(ctx context.Context, db *DB, fsys fs.FS, down bool) ([]string, error) {
	pattern := "*.up.sql"
	if down {
		pattern = "*.down.sql"
	}
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(files)
	if down {
		slices.Reverse(files)
	}

	applied := make([]string, 0, len(files))
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			return applied, fmt.Errorf("exec %s: %w", f, err)
		}
		applied = append(applied, f)
	}
	return applied, nil
}
