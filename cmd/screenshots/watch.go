package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/logging"
	"github.com/sebfried/menubarmaid/internal/tui"
	"github.com/sebfried/menubarmaid/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the desktop screenshots live in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // G115: fd fits in int
				return errors.New("watch needs an interactive terminal; use the list command instead")
			}

			// Console output would tear the alternate screen; keep only the
			// configured log file.
			a.logs.Close() //nolint:errcheck
			a.logs, a.logger = logging.NewManagerWithWriter(a.cfg.Logging, io.Discard)

			locator, err := a.locator()
			if err != nil {
				return err
			}
			bus := event.NewBus(a.logger, 16)
			go bus.Start()
			defer bus.Stop()

			svc := watcher.NewService(locator, bus, a.logger, a.cfg.Desktop.WatcherOptions())
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go svc.Start(ctx)

			actions := launcher.New(a.logger, launcher.Options{})
			return tui.Run(a.dir, svc.Updates(ctx), actions)
		},
	}
}
