package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"

	// versionLayout keeps versions sortable as plain strings
	versionLayout = "20060102150405"
)

var migrationTemplate = template.Must(template.New("migration").Parse(
	`-- Migration: {{.Name}}{{if .Rollback}} (Rollback){{end}}
{{- if .Description}}
-- Description: {{.Description}}
{{- end}}
-- Created: {{.Timestamp}}

`))

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair named after now
func CreateMigration(migrationsDir, name, description string, now time.Time) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, errors.New("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format(versionLayout)
	base := filepath.Join(migrationsDir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   now.UTC().Format(time.RFC3339),
		UpPath:      base + upSuffix,
		DownPath:    base + downSuffix,
	}

	if err := writeTemplate(mf.UpPath, mf, false); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path string, mf *MigrationFile, rollback bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return migrationTemplate.Execute(f, struct {
		*MigrationFile
		Rollback bool
	}{mf, rollback})
}

// sanitizeName lowercases name and collapses separators into single
// underscores, dropping everything else
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the sorted base names of every migration that has
// an up file in fsys
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), upSuffix); ok {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}

// CheckPairs reports migrations that are missing their down file or their
// up file
func CheckPairs(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), upSuffix); ok {
			ups[base] = true
		} else if base, ok := strings.CutSuffix(entry.Name(), downSuffix); ok {
			downs[base] = true
		}
	}

	var problems []string
	for base := range ups {
		if !downs[base] {
			problems = append(problems, base+" has no down migration")
		}
	}
	for base := range downs {
		if !ups[base] {
			problems = append(problems, base+" has no up migration")
		}
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
