package counter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatetimeConfig holds the Go layout strings for reading access logs and
// writing the HTML report.
type DatetimeConfig struct {
	Read  string `yaml:"read"`
	Write string `yaml:"write"`
}

// FileConfig mirrors the yaml configuration file.
//
//	accesslogs:            # oldest to newest
//	  - /var/log/nginx/access.log.1
//	  - /var/log/nginx/access.log
//	sqlite: downloads.db
//	filepath: /wp-content/uploads/
//	filenames: [.zip, .exe]
//	webpage: /var/www/html/downloads.html
//	datetime:
//	  read: 02/Jan/2006:15:04:05 -0700
//	  write: Mon 02 Jan 15:04
//
// Missing keys fall back to defaults; an empty filenames list makes the run
// count nothing.
type FileConfig struct {
	// AccessLogs are plain-text log paths, oldest first.
	AccessLogs []string `yaml:"accesslogs"`
	SQLite     string   `yaml:"sqlite"`
	// FilePath is the leading part of the download path as it appears in
	// the log. Empty matches any path.
	FilePath  string         `yaml:"filepath"`
	FileNames []string       `yaml:"filenames"`
	Webpage   string         `yaml:"webpage"`
	Datetime  DatetimeConfig `yaml:"datetime"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values. AccessLogs and FileNames stay as given:
// no logs means nothing to read, and no filenames means nothing will match.
func (c *FileConfig) ApplyDefaults() {
	if strings.TrimSpace(c.SQLite) == "" {
		c.SQLite = "downloads.db"
	}
	if strings.TrimSpace(c.Datetime.Read) == "" {
		c.Datetime.Read = DefaultReadLayout
	}
	if strings.TrimSpace(c.Datetime.Write) == "" {
		c.Datetime.Write = DefaultWriteLayout
	}
}
