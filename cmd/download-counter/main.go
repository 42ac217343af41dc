package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"download-counter/counter"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile    string
	logLevel   string
	verbose    bool
	initPath   string
	accessLogs []string
	dbPath     string
	filePath   string
	fileNames  []string
	webpage    string

	log *logrus.Logger
)

func main() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("Failed to execute command")
	}
}

var rootCmd = &cobra.Command{
	Use:   "download-counter",
	Short: "Tally successful downloads from web server access logs",
	Long: `download-counter scans nginx/Apache access logs for successful (HTTP 200)
downloads of configured file names or extensions and tallies them in a
sqlite database, one row per file with a last-seen timestamp and a running
total. It can also render the table as a static HTML page.

Intended to run once per day from cron against the current and previously
rotated access log. On first use, --init <pathprefix> rebuilds the database
from every log matching the prefix, gzip-compressed rotations included; in
that mode every matching event is counted regardless of age, so use it only
before normal incremental operation begins.

Configuration comes from a YAML file (--config); command line flags override
individual values. An incremental run only counts events strictly newer than
the most recent stored timestamp, so rerunning over the same logs does not
inflate totals.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		log.SetLevel(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if verbose {
			printConfig(cfg)
		}

		runner, err := counter.NewRunner(counter.RunnerConfig{
			DBPath:      cfg.SQLite,
			AccessLogs:  cfg.AccessLogs,
			FilePath:    cfg.FilePath,
			FileNames:   cfg.FileNames,
			Webpage:     cfg.Webpage,
			ReadLayout:  cfg.Datetime.Read,
			WriteLayout: cfg.Datetime.Write,
		}, log)
		if err != nil {
			return err
		}
		defer runner.Close()

		if initPath != "" {
			err = runner.RunInit(initPath)
		} else {
			err = runner.Run()
		}
		if err != nil {
			return err
		}

		if verbose {
			return printTable(runner)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("download-counter %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "print resolved configuration and final table contents")
	rootCmd.Flags().StringVarP(&initPath, "init", "i", "", "reinitialize: rebuild the database from all logs matching this path prefix (including .gz)")
	rootCmd.Flags().StringArrayVarP(&accessLogs, "accesslog", "a", nil, "access log path, oldest first (repeatable, overrides config)")
	rootCmd.Flags().StringVarP(&dbPath, "sqlite", "s", "", "sqlite database path (overrides config)")
	rootCmd.Flags().StringVarP(&filePath, "filepath", "p", "", "download path prefix as it appears in the log (overrides config)")
	rootCmd.Flags().StringArrayVarP(&fileNames, "file", "f", nil, "file name or extension to count (repeatable, overrides config)")
	rootCmd.Flags().StringVarP(&webpage, "webpage", "w", "", "HTML output path, empty disables rendering (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

// resolveConfig merges the config file with explicitly set flags; flags win
// only when the user passed them.
func resolveConfig(cmd *cobra.Command) (*counter.FileConfig, error) {
	cfg := &counter.FileConfig{}
	if cfgFile != "" {
		loaded, err := counter.LoadConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("accesslog") {
		cfg.AccessLogs = accessLogs
	}
	if cmd.Flags().Changed("sqlite") {
		cfg.SQLite = dbPath
	}
	if cmd.Flags().Changed("filepath") {
		cfg.FilePath = filePath
	}
	if cmd.Flags().Changed("file") {
		cfg.FileNames = fileNames
	}
	if cmd.Flags().Changed("webpage") {
		cfg.Webpage = webpage
	}
	cfg.ApplyDefaults()

	if len(cfg.FileNames) == 0 {
		log.Warn("No filenames configured, nothing will be counted")
	}
	return cfg, nil
}

func printConfig(cfg *counter.FileConfig) {
	fmt.Println("\nResolved configuration:")
	fmt.Println("-----------------------")
	fmt.Println("accesslogs:")
	for _, l := range cfg.AccessLogs {
		fmt.Printf("   %s\n", l)
	}
	fmt.Printf("sqlite:    \t%s\n", cfg.SQLite)
	fmt.Printf("filepath:  \t%s\n", cfg.FilePath)
	fmt.Printf("filenames: \t%s\n", strings.Join(cfg.FileNames, " "))
	fmt.Printf("webpage:   \t%s\n", cfg.Webpage)
	fmt.Printf("datetime read: \t%s\n", cfg.Datetime.Read)
	fmt.Printf("datetime write:\t%s\n", cfg.Datetime.Write)
}

func printTable(runner *counter.Runner) error {
	rows, err := runner.Snapshot()
	if err != nil {
		return err
	}
	fmt.Println("\nID \tFile \t\t Timestamp \t\t Total")
	for _, r := range rows {
		fmt.Printf("%d\t%s\t%s\t%d\n", r.ID, r.Filename, r.Timestamp.Format("2006-01-02 15:04:05"), r.Total)
	}
	return nil
}
