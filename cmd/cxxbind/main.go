package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
)

var (
	flagDB        string
	flagFormat    string
	flagLogLevel  string
	flagLogFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Exit codes: 1 for failures, 2 for configuration errors in the input or
// directives.
func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		var cfgErr *cxxbind.ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cxxbind",
	Short:         "Generate a safe bridge and native shims for a C++ API",
	Long:          "cxxbind reads the entities of a C++ API, decides what can cross into the host language, and writes a bridge declaration plus a shim header and source.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return configureLogger(logger, flagLogLevel, flagLogFormat)
	},
}

// logger is shared by every command; PersistentPreRunE applies the flags.
var logger = logrus.New()

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "run database path (default: .cxxbind/run.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text|json")

	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(inspectCmd)
}

// configureLogger applies --log-level and --log-format. Logs always go to
// stderr so stdout carries only results.
func configureLogger(l *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)
	switch format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".cxxbind", "run.db")
}

// currentDBPath resolves the database path from the working directory.
func currentDBPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return resolveDBPath(findRepoRoot(cwd)), nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
