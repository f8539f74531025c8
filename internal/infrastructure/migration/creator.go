package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ScriptPair is an up/down migration pair on disk.
type ScriptPair struct {
	Version  string
	Slug     string
	UpPath   string
	DownPath string
}

// NewScripts writes a fresh up/down pair into dir. The version prefix is the
// current timestamp so files sort in creation order.
func NewScripts(dir, name, description string) (*ScriptPair, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q produces an empty file name", name)
	}

	header := description
	if header == "" {
		header = name
	}

	pair := &ScriptPair{
		Version: time.Now().Format("20060102150405"),
		Slug:    slug,
	}
	base := pair.Version + "_" + slug
	pair.UpPath = filepath.Join(dir, base+".up.sql")
	pair.DownPath = filepath.Join(dir, base+".down.sql")

	up := fmt.Sprintf("-- %s\n\n", header)
	down := fmt.Sprintf("-- Revert: %s\n\n", header)

	if err := os.WriteFile(pair.UpPath, []byte(up), 0644); err != nil {
		return nil, fmt.Errorf("write up script: %w", err)
	}
	if err := os.WriteFile(pair.DownPath, []byte(down), 0644); err != nil {
		_ = os.Remove(pair.UpPath)
		return nil, fmt.Errorf("write down script: %w", err)
	}
	return pair, nil
}

// slugify lowercases a migration name and collapses separators to single
// underscores. Characters outside [a-z0-9_] are dropped.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// List returns the base names of all up scripts in dir, one per pair.
// A missing directory is treated as having no migrations.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	return names, nil
}
