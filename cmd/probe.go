package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var doExport bool
	cmd := &cobra.Command{
		Use:   "probe <url>...",
		Short: "Probe one or more URLs in order and print the session table.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			logger := app.Logger()
			for _, rawURL := range args {
				_, err := app.Prober().Probe(cmd.Context(), rawURL)
				if errors.Is(err, probe.ErrEmptyURL) {
					return fmt.Errorf("probe %q: %w", rawURL, err)
				}
				for _, se := range probe.FailedStages(err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", rawURL, se)
				}
			}
			if err := writeTable(cmd.OutOrStdout(), app.Session().Snapshot()); err != nil {
				return err
			}
			if !doExport {
				return nil
			}
			msg, err := app.Exporter().Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export records: %w", err)
			}
			if msg != "" {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			logger.Debug("probe command finished", zap.Int("urls", len(args)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&doExport, "export", false, "write the session records as CSV through the configured export provider")
	return cmd
}

// writeTable prints one tab-aligned row per record under the column header.
func writeTable(w io.Writer, records []probe.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(probe.Columns(), "\t")); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(tw, strings.Join(r.Values(), "\t")); err != nil {
			return fmt.Errorf("write table row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}
