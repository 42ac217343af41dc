package counter

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type RunnerConfig struct {
	DBPath string
	// AccessLogs are plain-text log paths, oldest first. The caller owns
	// the ordering; out-of-order input shifts last-seen timestamps.
	AccessLogs  []string
	FilePath    string
	FileNames   []string
	Webpage     string
	ReadLayout  string
	WriteLayout string
}

// Runner executes one counting run against the configured logs and store.
type Runner struct {
	cfg      RunnerConfig
	log      logrus.FieldLogger
	store    *Store
	patterns []*regexp.Regexp
	now      func() time.Time
}

func NewRunner(cfg RunnerConfig, log logrus.FieldLogger) (*Runner, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("DBPath is required")
	}
	if strings.TrimSpace(cfg.ReadLayout) == "" {
		cfg.ReadLayout = DefaultReadLayout
	}
	if strings.TrimSpace(cfg.WriteLayout) == "" {
		cfg.WriteLayout = DefaultWriteLayout
	}

	store, err := OpenStore(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		log:      log.WithField("component", "runner"),
		store:    store,
		patterns: BuildPatterns(cfg.FilePath, cfg.FileNames),
		now:      time.Now,
	}, nil
}

func (r *Runner) Close() error {
	return r.store.Close()
}

// Snapshot exposes the store contents, used by the verbose table dump.
func (r *Runner) Snapshot() ([]Download, error) {
	return r.store.Snapshot()
}

// Run performs one incremental pass: events strictly newer than the
// pre-run watermark are tallied, configured logs are processed oldest first,
// and a missing log file is reported and skipped. The database file is only
// compacted when at least one event was accepted.
func (r *Runner) Run() error {
	watermark, err := r.store.Watermark()
	if err != nil {
		return err
	}
	r.log.WithField("watermark", watermark).Debug("run start")

	accepted := 0
	for _, logPath := range r.cfg.AccessLogs {
		f, err := os.Open(logPath)
		if err != nil {
			r.log.WithError(err).WithField("log", logPath).
				Warn("Skipping unreadable access log")
			continue
		}
		n, scanErr := r.scanLog(f, watermark, true)
		_ = f.Close()
		if scanErr != nil {
			return fmt.Errorf("processing %q: %w", logPath, scanErr)
		}
		accepted += n
		r.log.WithField("log", logPath).WithField("accepted", n).
			Debug("access log processed")
	}

	if err := r.writeReport(); err != nil {
		return err
	}
	if accepted > 0 {
		if err := r.store.Vacuum(); err != nil {
			return err
		}
	}
	r.log.WithField("accepted", accepted).Info("Run complete")
	return nil
}

// RunInit rebuilds the table from every log matching pathPrefix, compressed
// archives included, with no timestamp filter. Every matching event counts,
// so this belongs before normal incremental operation, not after. When the
// glob yields files out of chronological order, last-seen timestamps end up
// in processing order; supplying ordered files is the caller's job.
func (r *Runner) RunInit(pathPrefix string) error {
	if err := r.store.Reinitialize(); err != nil {
		return err
	}

	matches, err := filepath.Glob(pathPrefix + "*")
	if err != nil {
		return fmt.Errorf("globbing %q: %w", pathPrefix+"*", err)
	}
	for _, logPath := range matches {
		rd, closeFn, err := openLog(logPath)
		if err != nil {
			r.log.WithError(err).WithField("log", logPath).
				Warn("Skipping unreadable access log")
			continue
		}
		r.log.WithField("log", logPath).Debug("backfilling from log")
		n, scanErr := r.scanLog(rd, time.Time{}, false)
		closeFn()
		if scanErr != nil {
			return fmt.Errorf("processing %q: %w", logPath, scanErr)
		}
		r.log.WithField("log", logPath).WithField("accepted", n).
			Debug("access log processed")
	}

	return r.writeReport()
}

// scanLog feeds every line to every pattern; a line matching several
// patterns is counted once per pattern, as each pattern tracks a distinct
// filename or extension.
func (r *Runner) scanLog(rd io.Reader, watermark time.Time, filtered bool) (int, error) {
	accepted := 0
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		for _, pattern := range r.patterns {
			ev, ok, err := ExtractEvent(line, pattern, r.cfg.ReadLayout)
			if err != nil {
				return accepted, err
			}
			if !ok {
				continue
			}
			if filtered && !ev.Timestamp.After(watermark) {
				continue
			}
			if err := r.store.RecordEvent(ev.Filename, ev.Timestamp); err != nil {
				return accepted, err
			}
			accepted++
		}
	}
	return accepted, sc.Err()
}

func (r *Runner) writeReport() error {
	if strings.TrimSpace(r.cfg.Webpage) == "" {
		r.log.Debug("no webpage path, report disabled")
		return nil
	}
	rows, err := r.store.Snapshot()
	if err != nil {
		return err
	}
	if err := WriteReport(r.cfg.Webpage, rows, r.now(), r.cfg.WriteLayout); err != nil {
		return err
	}
	r.log.WithField("webpage", r.cfg.Webpage).Info("Report written")
	return nil
}

// openLog opens a plain or gzip-compressed access log for reading.
func openLog(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, fmt.Errorf("opening gzip log %q: %w", path, err)
		}
		return gz, func() {
			_ = gz.Close()
			_ = f.Close()
		}, nil
	}
	return f, func() { _ = f.Close() }, nil
}
