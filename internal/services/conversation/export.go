package conversation

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/advisor/internal/services/ingest"
)

// ExportPDF renders a session transcript as an A4 PDF
func (s *Store) ExportPDF(ctx context.Context, sessionID string) ([]byte, error) {
	messages, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Conversation "+sessionID, true)
	pdf.SetCreator("advisor", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	write := func(s string) string {
		return tr(strings.ReplaceAll(s, "₹", "Rs."))
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, write("Conversation transcript"))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.Cell(0, 5, write(fmt.Sprintf("Session %s - %d messages", sessionID, len(messages))))
	pdf.Ln(9)

	for _, msg := range messages {
		speaker := "You"
		if msg.Role == models.RoleAssistant {
			speaker = "Advisor"
			if msg.Outcome == models.TurnOutcomeFallback {
				speaker += " (offline guidance)"
			}
		}

		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(30, 30, 30)
		pdf.Cell(0, 5, write(fmt.Sprintf("%s  %s", speaker, msg.CreatedAt.Format("2006-01-02 15:04"))))
		pdf.Ln(5)

		body := msg.Text
		if msg.Role == models.RoleAssistant {
			body = ingest.CleanText(ingest.MarkdownToText([]byte(body)))
		}
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 4.5, write(body), "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Str("session_id", sessionID).Int("pdf_size", buf.Len()).Msg("Transcript exported")
	return buf.Bytes(), nil
}
