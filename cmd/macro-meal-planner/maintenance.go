package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"macro-meal-planner/internal/api"
	"macro-meal-planner/internal/storage"
)

var (
	snapshotKeep int
	cleanupDays  int
	tokenSubject string
	tokenTTL     time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the stored catalog to a JSON snapshot and prune old ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := application.SnapshotCatalog(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Snapshot %s written to %s\n", storage.Describe(path), path)

		if snapshotKeep > 0 {
			removed, err := application.Snapshots().RemoveStaleVersions(snapshotKeep)
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d old snapshots.\n", removed)
		}
		return nil
	},
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	RunE: func(cmd *cobra.Command, args []string) error {
		affected, err := application.Metrics().Cleanup(cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		cmd.Printf("Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := api.IssueToken([]byte(cfg.APIJWTSecret), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotKeep, "keep", 5, "number of snapshots to keep (0 keeps all)")
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "keep records for the last N days")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "api-client", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	rootCmd.AddCommand(snapshotCmd, metricsCleanupCmd, tokenCmd)
}
