package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sebfried/menubarmaid/internal/config"
	"github.com/sebfried/menubarmaid/internal/logging"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// errCopyFailed makes the process exit non-zero after at least one copy
// failed.
var errCopyFailed = errors.New("copying screenshots failed")

const timeLayout = "2006-01-02 15:04:05"

// app holds state shared by the commands of one invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	logs   *logging.Manager

	dir   string
	match string
}

// formatTime renders t in UTC truncated to seconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		number  int
		copyDir string
	)

	root := &cobra.Command{
		Use:           "screenshots",
		Short:         "Find the latest screenshots on the desktop",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logs != nil {
				a.logs.Close() //nolint:errcheck
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if number <= 0 {
				return fmt.Errorf("--number must be positive, got %d", number)
			}
			locator, err := a.locator()
			if err != nil {
				return err
			}
			records := locator.List(cmd.Context(), number)
			out := cmd.OutOrStdout()
			printRecords(out, records)
			if copyDir == "" || len(records) == 0 {
				return nil
			}
			return copyRecords(out, cmd.ErrOrStderr(), records, copyDir)
		},
	}

	root.PersistentFlags().StringVar(&a.dir, "dir", "", "directory to search (default: configured desktop path)")
	root.PersistentFlags().StringVar(&a.match, "match", "", "matching rule: strict or loose (default: configured rule)")
	root.Flags().IntVarP(&number, "number", "n", 5, "number of screenshots to find")
	root.Flags().StringVarP(&copyDir, "copy", "c", "", "copy the screenshots to this directory")

	root.AddCommand(newWatchCmd(a), newRemoteCmd(a))
	return root
}

// setup loads configuration and logging. Flags override the configured
// directory and rule.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	if a.dir == "" {
		a.dir = cfg.Desktop.Path
	}
	if a.match == "" {
		a.match = cfg.Desktop.Match
	}
	a.logs, a.logger = logging.NewManagerWithWriter(cfg.Logging, stderr)
	return nil
}

func (a *app) locator() (*screenshot.Locator, error) {
	matcher, err := screenshot.RuleByName(a.match)
	if err != nil {
		return nil, err
	}
	return screenshot.NewLocator(a.dir, matcher, a.logger), nil
}

func printRecords(out io.Writer, records []screenshot.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No screenshots found on the desktop.")
		return
	}
	fmt.Fprintf(out, "Found %d latest screenshots:\n", len(records))
	for i, r := range records {
		fmt.Fprintf(out, "%d. %s - %s\n", i+1, r.FileName, formatTime(r.CreationTime))
	}
}

func copyRecords(out, errOut io.Writer, records []screenshot.Record, dest string) error {
	report := screenshot.CopyTo(records, dest)
	if report.DirErr != nil {
		fmt.Fprintf(errOut, "Error: %v\n", report.DirErr)
	}
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(errOut, "Error copying %s: %v\n", res.Record.FileName, res.Err)
			continue
		}
		fmt.Fprintf(out, "Copied %s to %s\n", res.Record.FileName, dest)
	}
	if report.Failed() {
		return errCopyFailed
	}
	return nil
}
