package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/advisor/internal/app"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your finances",
	Long:  `Runs one chat turn against the indexed documents. Pass --session to continue an earlier conversation.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var (
	askSession   string
	askDocuments []string
	askJSON      bool
)

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "Session id (a new session is created when empty)")
	askCmd.Flags().StringSliceVar(&askDocuments, "document", nil, "Restrict retrieval to these document ids")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	sessionID := askSession
	if sessionID == "" {
		sessionID = common.NewSessionID()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := application.ChatService.Chat(ctx, &models.ChatRequest{
		SessionID:   sessionID,
		Message:     args[0],
		DocumentIDs: askDocuments,
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printResponse(cmd, response)
	return nil
}

func printResponse(cmd *cobra.Command, response *models.ChatResponse) {
	cmd.Println(response.Message)

	if len(response.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, source := range response.Sources {
			cmd.Printf("  [%d] %s (%.2f): %s\n", i+1, source.Filename, source.Score, source.Snippet)
		}
	}

	if len(response.Suggestions) > 0 {
		cmd.Println()
		cmd.Println("You could also ask:")
		for _, suggestion := range response.Suggestions {
			cmd.Printf("  - %s\n", suggestion)
		}
	}

	cmd.Println()
	cmd.Printf("session: %s  outcome: %s\n", response.SessionID, response.Outcome)
}
