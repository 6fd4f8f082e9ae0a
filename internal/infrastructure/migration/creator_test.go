package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/partscatalog/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add fitment index", "add_fitment_index"},
		{"Add-Fitment-Index", "add_fitment_index"},
		{"add__fit__terms", "add_fit_terms"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestList(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_linkage.up.sql":   {},
		"000002_linkage.down.sql": {},
		"000001_taxonomy.up.sql":  {},
		"000010_late.up.sql":      {},
		"README.md":               {},
		"notaversion_x.up.sql":    {},
	}
	entries, err := List(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Version: 1, Name: "taxonomy"},
		{Version: 2, Name: "linkage"},
		{Version: 10, Name: "late"},
	}, entries)
}

func TestList_EmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := List(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "versions are contiguous")
		_, err := migrations.FS.Open(e.DownFile())
		assert.NoError(t, err, "missing %s", e.DownFile())
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	first, err := Create(dir, "Add fitment index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_fitment_index.up.sql"), first.UpPath)
	assert.FileExists(t, first.DownPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "add fitment index")

	second, err := Create(dir, "snapshots", "Track pushes")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	_, err = Create(dir, "!!!", "")
	assert.Error(t, err)
}
