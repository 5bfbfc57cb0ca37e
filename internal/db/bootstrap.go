package db

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// schemaProbeTable is the business table whose presence marks an initialized
// schema. The template database ships with it pre-created.
const schemaProbeTable = "profil"

// Bootstrap prepares the store file before the first Open.
//
// On first run (no database file yet) the template database is copied into
// place so the app starts with the seeded schema and admin data. When no
// template is configured the file is left absent and Open creates an empty
// store. Returns true when this was a first run.
func Bootstrap(dataDir, templatePath string) (bool, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat database file: %w", err)
	}

	if templatePath == "" {
		return true, nil
	}

	if err := copyFile(templatePath, dbPath); err != nil {
		return false, fmt.Errorf("failed to copy template database: %w", err)
	}
	return true, nil
}

// SchemaInitialized reports whether the business schema is present.
// The gateway works either way; the shell uses this to warn on a bare store.
func (db *DB) SchemaInitialized() (bool, error) {
	return db.TableExists(schemaProbeTable)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
