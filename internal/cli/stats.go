// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/telemetry"
)

// defaultStatsDays is the window of the usage report.
const defaultStatsDays = 30

func newStatsCommand(flags *globalFlags) *cobra.Command {
	var (
		days    int
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print usage of past sessions",
		Long: `Print turn outcomes, error classes and latency of past sessions.
With --metrics, print the Prometheus metrics of the last session instead
(written on exit when metrics.textfile is set).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if metrics {
				path := cfg.Metrics.Textfile
				if path == "" {
					return errors.New("metrics.textfile is not set (procubot config set metrics.textfile <path>)")
				}
				data, err := os.ReadFile(path)
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no metrics written yet at %s", path)
				} else if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			us, err := telemetry.NewUsageStorage(filepath.Join(dir, "usage"))
			if err != nil {
				return err
			}
			tr, err := us.Trends(days)
			if err != nil {
				return err
			}
			fmt.Fprint(out, tr.Format())
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultStatsDays, "number of days to report")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print the metrics of the last session")
	return cmd
}
