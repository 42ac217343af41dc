package counter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download-counter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accesslogs:
  - /var/log/nginx/access.log.1
  - /var/log/nginx/access.log
sqlite: /var/lib/download-counter/downloads.db
filepath: /wp-content/uploads/
filenames: [.zip, .exe, robots.txt]
webpage: /var/www/html/downloads.html
datetime:
  read: 02/Jan/2006:15:04:05 -0700
  write: Mon 02 Jan 15:04
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/var/log/nginx/access.log.1", "/var/log/nginx/access.log"}, cfg.AccessLogs)
	assert.Equal(t, "/var/lib/download-counter/downloads.db", cfg.SQLite)
	assert.Equal(t, "/wp-content/uploads/", cfg.FilePath)
	assert.Equal(t, []string{".zip", ".exe", "robots.txt"}, cfg.FileNames)
	assert.Equal(t, "/var/www/html/downloads.html", cfg.Webpage)
	assert.Equal(t, "02/Jan/2006:15:04:05 -0700", cfg.Datetime.Read)
	assert.Equal(t, "Mon 02 Jan 15:04", cfg.Datetime.Write)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &FileConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "downloads.db", cfg.SQLite)
	assert.Equal(t, DefaultReadLayout, cfg.Datetime.Read)
	assert.Equal(t, DefaultWriteLayout, cfg.Datetime.Write)
	// Lists stay empty: no logs to read, nothing to match.
	assert.Empty(t, cfg.AccessLogs)
	assert.Empty(t, cfg.FileNames)
	assert.Empty(t, cfg.Webpage)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &FileConfig{
		SQLite:   "custom.db",
		Datetime: DatetimeConfig{Read: "2006-01-02 15:04:05", Write: "02 Jan 2006"},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "custom.db", cfg.SQLite)
	assert.Equal(t, "2006-01-02 15:04:05", cfg.Datetime.Read)
	assert.Equal(t, "02 Jan 2006", cfg.Datetime.Write)
}

func TestLoadConfigPartial(t *testing.T) {
	// Missing sections are not fatal; they resolve to defaults/empty.
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filenames: [.zip]\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.ApplyDefaults()

	assert.Equal(t, []string{".zip"}, cfg.FileNames)
	assert.Equal(t, "downloads.db", cfg.SQLite)
	assert.Empty(t, cfg.AccessLogs)
}
