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
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/relocator/internal/verify"
)

// errVerificationFailed drives the nonzero exit after the FAILED
// summary line has already been printed.
var errVerificationFailed = errors.New("verification failed")

func init() {
	var manifestLoc string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit an executed manifest: sources gone, destinations present",
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "relocator-verify"
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

			store, err := recordStore(doneCtx, m)
			if err != nil {
				return err
			}

			summary, err := verify.NewVerifier(store).Verify(doneCtx, m)
			if err != nil {
				return err
			}

			for _, res := range summary.Results {
				if res.OK() {
					fmt.Printf("OK: %s\n", res.Record.SourcePath)
				} else {
					fmt.Printf("FAILED: %s: %v\n", res.Record.SourcePath, res.Err)
				}
			}
			if !summary.Passed() {
				fmt.Printf("Verification FAILED (%d of %d records)\n", summary.Failed, summary.OK+summary.Failed)
				// The line above is the report; keep cobra from
				// printing the error a second time.
				c.SilenceErrors = true
				c.SilenceUsage = true
				return errVerificationFailed
			}
			if len(summary.Results) == 0 {
				fmt.Println("nothing to verify")
				return nil
			}
			fmt.Printf("Verification PASSED (%d records)\n", summary.OK)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestLoc, "manifest", "", "manifest to verify (local path or s3://bucket/key)")
	_ = cmd.MarkFlagRequired("manifest")

	rootCmd.AddCommand(cmd)
}
