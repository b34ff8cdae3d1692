package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/advisor/internal/app"
	"github.com/ternarybob/advisor/internal/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index documents into the knowledge base",
	Long:  `Extracts, chunks and embeds each file, waiting until it is ready or has failed.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var (
	ingestType    string
	ingestTimeout time.Duration
)

func init() {
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "Declared file type (pdf, docx, xlsx, txt, md, html); inferred from the extension when empty")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 5*time.Minute, "Maximum time to wait per document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	failed := 0
	for _, path := range args {
		doc, err := ingestFile(cmd.Context(), application, path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		if doc.Status != models.DocumentStatusReady {
			cmd.Printf("%s  %s  %s (%s)\n", doc.ID, doc.Filename, doc.Status, doc.Error)
			failed++
			continue
		}
		cmd.Printf("%s  %s  %s, %d chunks\n", doc.ID, doc.Filename, doc.Status, len(doc.ChunkIDs))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents were not indexed", failed, len(args))
	}
	return nil
}

func ingestFile(parent context.Context, application *app.App, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, ingestTimeout)
	defer cancel()

	result, err := application.DocumentService.SubmitDocument(ctx, data, filepath.Base(path), ingestType)
	if err != nil {
		return nil, err
	}

	if err := application.DocumentService.AwaitDocument(ctx, result.DocumentID); err != nil {
		return nil, fmt.Errorf("waiting for ingestion: %w", err)
	}

	return application.DocumentService.GetDocument(ctx, result.DocumentID)
}
