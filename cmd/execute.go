// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/relocator/config"
	"github.com/cardinalhq/relocator/internal/execute"
)

func init() {
	var manifestLoc string
	var workers int

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Replay a manifest's moves against the store",
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "relocator-execute"
			doneCtx, doneFx, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// A manifest that cannot be loaded is the one fatal
			// condition; individual move failures are reported per
			// record and the run still succeeds.
			m, err := loadManifest(doneCtx, manifestLoc)
			if err != nil {
				return fmt.Errorf("load manifest %s: %w", manifestLoc, err)
			}

			store, err := recordStore(doneCtx, m)
			if err != nil {
				return err
			}

			executor := execute.NewExecutor(store)
			executor.Workers = cfg.Execute.Workers
			if workers > 0 {
				executor.Workers = workers
			}

			outcomes, err := executor.Execute(doneCtx, m)
			if err != nil {
				return err
			}

			for _, o := range outcomes {
				fmt.Println(o.String())
			}
			counts := execute.Summarize(outcomes)
			slog.Info("execution complete",
				slog.String("manifestID", m.ID),
				slog.Int("success", counts[execute.StatusSuccess]),
				slog.Int("error", counts[execute.StatusError]),
				slog.Int("failure", counts[execute.StatusFailure]),
				slog.Int("skipped", counts[execute.StatusSkipped]))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestLoc, "manifest", "", "manifest to execute (local path or s3://bucket/key)")
	cmd.Flags().IntVar(&workers, "workers", 0, "move worker count, overrides config")
	_ = cmd.MarkFlagRequired("manifest")

	rootCmd.AddCommand(cmd)
}
