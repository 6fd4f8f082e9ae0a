package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Description}}
-- Created: {{.Timestamp}}

`

const downTemplate = `-- Rollback of {{.Name}}

`

const (
	upSuffix      = ".up.sql"
	versionDigits = 6
)

// File is a created migration pair
type File struct {
	Version     uint
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// Create writes the next NNNNNN_name.{up,down}.sql pair into dir. Versions
// are sequential so they line up with the files shipped in migrations/.
func Create(dir, name, description string) (*File, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}
	if description == "" {
		description = strings.ReplaceAll(name, "_", " ")
	}

	base := fmt.Sprintf("%0*d_%s", versionDigits, next, name)
	f := &File{
		Version:     next,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(dir, base+upSuffix),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}
	if err := render(f.UpPath, upTemplate, f); err != nil {
		return nil, err
	}
	if err := render(f.DownPath, downTemplate, f); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, err
	}
	return f, nil
}

func render(path, text string, data *File) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if err := tmpl.Execute(out, data); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

// Entry is one migration found in a source
type Entry struct {
	Version uint
	Name    string
}

// DownFile is the rollback file name of the entry
func (e Entry) DownFile() string {
	return fmt.Sprintf("%0*d_%s.down.sql", versionDigits, e.Version, e.Name)
}

// List returns the migrations of fsys ordered by version. Files that do not
// follow the NNNNNN_name.up.sql pattern are ignored.
func List(fsys fs.FS) ([]Entry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	out := make([]Entry, 0, len(entries)/2)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), upSuffix) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), upSuffix)
		rawVersion, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(rawVersion, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Entry{Version: uint(version), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// sanitizeName lowercases and collapses separators into single underscores
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
