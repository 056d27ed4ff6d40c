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

	"github.com/cardinalhq/relocator/internal/report"
)

func init() {
	var manifestLoc string
	var outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report duplicate content and destination collisions in a manifest",
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "relocator-report"
			doneCtx, doneFx, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			m, err := loadManifest(doneCtx, manifestLoc)
			if err != nil {
				return fmt.Errorf("load manifest %s: %w", manifestLoc, err)
			}

			r := report.Build(m)
			if r.Empty() {
				fmt.Println("no duplicates or collisions")
				return nil
			}

			if len(r.Duplicates) > 0 {
				fmt.Println("duplicates:")
				fmt.Print(r.RenderDuplicates())
			}
			if len(r.Collisions) > 0 {
				fmt.Println("collisions:")
				fmt.Print(r.RenderCollisions())
			}

			if err := r.WriteFiles(outDir); err != nil {
				return err
			}
			slog.Info("report written",
				slog.String("manifestID", m.ID),
				slog.String("dir", outDir),
				slog.Int("duplicateGroups", len(r.Duplicates)),
				slog.Int("collisionGroups", len(r.Collisions)))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestLoc, "manifest", "", "manifest to report on (local path or s3://bucket/key)")
	cmd.Flags().StringVar(&outDir, "report-dir", ".", "directory to write duplicates.txt and collisions.txt into")
	_ = cmd.MarkFlagRequired("manifest")

	rootCmd.AddCommand(cmd)
}
