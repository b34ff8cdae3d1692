package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// RetrievalOptions bounds search and prompt assembly
type RetrievalOptions struct {
	TopK          int
	MinSimilarity float64
	Similarity    models.Similarity
	PromptBudget  int // Characters for system, query, context and history together
}

// RetrievedChunk is a chunk admitted into the prompt
type RetrievedChunk struct {
	Chunk    *models.Chunk
	Filename string
	Score    float64
}

// Retrieval is the outcome of retrieval and prompt assembly
type Retrieval struct {
	Prompt *models.Prompt
	Chunks []RetrievedChunk
}

// Retriever embeds the query, searches the index and assembles the prompt
type Retriever struct {
	embeddings    interfaces.EmbeddingService
	index         interfaces.VectorIndex
	chunks        interfaces.ChunkStorage
	documents     interfaces.DocumentStorage
	conversations interfaces.ConversationStore
	options       RetrievalOptions
	logger        arbor.ILogger
}

// NewRetriever creates a retrieval orchestrator
func NewRetriever(
	embeddings interfaces.EmbeddingService,
	index interfaces.VectorIndex,
	chunks interfaces.ChunkStorage,
	documents interfaces.DocumentStorage,
	conversations interfaces.ConversationStore,
	options RetrievalOptions,
	logger arbor.ILogger,
) *Retriever {
	if options.Similarity == "" {
		options.Similarity = models.SimilarityCosine
	}
	return &Retriever{
		embeddings:    embeddings,
		index:         index,
		chunks:        chunks,
		documents:     documents,
		conversations: conversations,
		options:       options,
		logger:        logger,
	}
}

// EmbedQuery embeds the user's query
func (r *Retriever) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return r.embeddings.EmbedQuery(ctx, query)
}

// Assemble searches with vector (skipped when nil) and builds the prompt under
// the budget in priority order: system, query, chunks by similarity, recent history.
func (r *Retriever) Assemble(ctx context.Context, query string, vector []float32, sessionID string, documentIDs []string) (*Retrieval, error) {
	prompt := &models.Prompt{
		System:         FinanceAdvisorSystemPrompt,
		Query:          query,
		History:        []models.Message{},
		SourceChunkIDs: []string{},
	}
	used := utf8.RuneCountInString(prompt.System) + utf8.RuneCountInString(prompt.Query)

	var candidates []RetrievedChunk
	if vector != nil {
		var err error
		candidates, err = r.search(ctx, vector, documentIDs)
		if err != nil {
			return nil, err
		}
	}

	var contextText strings.Builder
	admitted := make([]RetrievedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		entry := formatContextEntry(len(admitted)+1, candidate)
		size := utf8.RuneCountInString(entry)
		if used+size > r.options.PromptBudget {
			break
		}
		used += size
		contextText.WriteString(entry)
		admitted = append(admitted, candidate)
		prompt.SourceChunkIDs = append(prompt.SourceChunkIDs, candidate.Chunk.ID)
	}
	prompt.Context = strings.TrimSpace(contextText.String())

	if remaining := r.options.PromptBudget - used; remaining > 0 {
		history, err := r.conversations.History(ctx, sessionID, remaining)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		// The newest turn is returned even when it alone exceeds the budget
		if historySize(history) <= remaining {
			prompt.History = history
		}
	}

	r.logger.Debug().
		Str("session_id", sessionID).
		Int("candidates", len(candidates)).
		Int("context_chunks", len(admitted)).
		Int("history_messages", len(prompt.History)).
		Int("prompt_chars", used+historySize(prompt.History)).
		Msg("Prompt assembled")

	return &Retrieval{Prompt: prompt, Chunks: admitted}, nil
}

// search returns chunks above the similarity threshold, best first, without duplicates
func (r *Retriever) search(ctx context.Context, vector []float32, documentIDs []string) ([]RetrievedChunk, error) {
	results, err := r.index.Search(ctx, vector, models.SearchOptions{
		K:           r.options.TopK,
		Similarity:  r.options.Similarity,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		return nil, err
	}

	filenames := make(map[string]string)
	seen := make(map[string]bool, len(results))
	chunks := make([]RetrievedChunk, 0, len(results))

	for _, result := range results {
		if result.Score < r.options.MinSimilarity || seen[result.ChunkID] {
			continue
		}
		seen[result.ChunkID] = true

		chunk, err := r.chunks.GetChunk(ctx, result.ChunkID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				if !r.index.Contains(result.ChunkID) {
					// Document deleted between search and lookup
					r.logger.Debug().Str("chunk_id", result.ChunkID).Msg("Skipping chunk removed during retrieval")
					continue
				}
				r.logger.Error().
					Str("chunk_id", result.ChunkID).
					Str("document_id", result.DocumentID).
					Msg("Index returned a chunk missing from chunk storage")
				return nil, fmt.Errorf("%w: chunk %s is indexed but not stored", common.ErrIndexInconsistency, result.ChunkID)
			}
			return nil, err
		}

		filename, ok := filenames[result.DocumentID]
		if !ok {
			if doc, err := r.documents.GetDocument(ctx, result.DocumentID); err == nil {
				filename = doc.Filename
			}
			filenames[result.DocumentID] = filename
		}

		chunks = append(chunks, RetrievedChunk{Chunk: chunk, Filename: filename, Score: result.Score})
	}
	return chunks, nil
}

// formatContextEntry renders one numbered excerpt for the prompt
func formatContextEntry(n int, c RetrievedChunk) string {
	source := c.Filename
	if source == "" {
		source = c.Chunk.DocumentID
	}
	return fmt.Sprintf("[%d] %s\n%s\n\n", n, source, c.Chunk.Text)
}

func historySize(history []models.Message) int {
	n := 0
	for _, m := range history {
		n += m.SerializedSize()
	}
	return n
}

// snippet returns the first length runes of text, marking truncation
func snippet(text string, length int) string {
	text = strings.Join(strings.Fields(text), " ")
	if length <= 0 || utf8.RuneCountInString(text) <= length {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:length])) + "..."
}
