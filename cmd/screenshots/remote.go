package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sebfried/menubarmaid/internal/client"
	"github.com/sebfried/menubarmaid/internal/filesystem"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

type remoteOptions struct {
	url   string
	token string
}

// client builds an API client, defaulting to the locally configured agent.
func (o *remoteOptions) client(a *app) *client.Client {
	url := o.url
	if url == "" {
		url = "http://" + a.cfg.Server.Addr() + a.cfg.Server.BasePath
	}
	token := o.token
	if token == "" {
		token = a.cfg.Server.Token
	}
	return client.New(url, token)
}

func newRemoteCmd(a *app) *cobra.Command {
	opts := &remoteOptions{}
	var (
		number  int
		copyDir string
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "List screenshots detected by a running agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if number <= 0 {
				return fmt.Errorf("--number must be positive, got %d", number)
			}
			c := opts.client(a)
			entries, err := c.List(cmd.Context(), number)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			records := make([]screenshot.Record, 0, len(entries))
			for _, e := range entries {
				records = append(records, e.Record)
			}
			printRecords(out, records)
			if copyDir == "" {
				return nil
			}
			return downloadEntries(cmd.Context(), c, out, cmd.ErrOrStderr(), entries, copyDir)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "agent base URL (default: configured server address)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "API token (default: configured token)")
	cmd.Flags().IntVarP(&number, "number", "n", 5, "number of screenshots to list")
	cmd.Flags().StringVarP(&copyDir, "copy", "c", "", "download the screenshots into this directory")

	cmd.AddCommand(newRemoteStreamCmd(a, opts))
	return cmd
}

func newRemoteStreamCmd(a *app, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Print screenshots as the agent detects them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Waiting for new screenshots...")
			return opts.client(a).Stream(cmd.Context(), func(e screenshot.Entry) {
				fmt.Fprintf(out, "New screenshot: %s - %s\n", e.FileName, formatTime(e.CreationTime))
			})
		},
	}
}

// downloadEntries fetches every entry into dest. Like the local copy, each
// download is attempted even after a failure.
func downloadEntries(ctx context.Context, c *client.Client, out, errOut io.Writer, entries []screenshot.Entry, dest string) error {
	failed := false
	for _, e := range entries {
		target := filepath.Join(dest, filepath.Base(e.FileName))
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(c.Download(ctx, e.ID, pw))
		}()
		err := filesystem.WriteReaderAtomic(target, pr, 0o644)
		pr.Close() //nolint:errcheck
		if err != nil {
			failed = true
			fmt.Fprintf(errOut, "Error copying %s: %v\n", e.FileName, err)
			continue
		}
		fmt.Fprintf(out, "Copied %s to %s\n", e.FileName, dest)
	}
	if failed {
		return errCopyFailed
	}
	return nil
}
