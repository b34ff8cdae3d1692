package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/advisor/internal/app"
	"github.com/ternarybob/advisor/internal/services/maintenance"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check that every indexed vector has a stored chunk",
	RunE:  runAudit,
}

var auditRepair bool

func init() {
	auditCmd.Flags().BoolVar(&auditRepair, "repair", false, "Remove vectors whose chunks are gone")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	// The one-off audit below replaces the scheduled one
	config.Maintenance.Enabled = false

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	auditor := maintenance.NewAuditor(application.VectorIndex, application.StorageManager.ChunkStorage(), auditRepair, logger)
	report, err := auditor.Audit(context.Background())
	if err != nil {
		return err
	}

	cmd.Printf("vectors: %d  ghost chunks: %d  repaired: %t\n", report.Vectors, len(report.GhostChunks), report.Repaired)
	for _, id := range report.GhostChunks {
		cmd.Printf("  %s\n", id)
	}
	return nil
}
