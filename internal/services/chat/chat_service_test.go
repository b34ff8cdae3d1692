package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/advisor/internal/services/conversation"
	"github.com/ternarybob/advisor/internal/services/embeddings"
	"github.com/ternarybob/advisor/internal/services/fallback"
	"github.com/ternarybob/advisor/internal/services/vectorindex"
	"github.com/ternarybob/advisor/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

const testDimension = 128

// fakeBackend returns a fixed status and counts calls
type fakeBackend struct {
	mu      sync.Mutex
	status  models.GenerationStatus
	calls   int
	prompts []*models.Prompt
}

func (b *fakeBackend) Generate(ctx context.Context, prompt *models.Prompt) *models.GenerationResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.prompts = append(b.prompts, prompt)
	if b.status == models.GenerationSuccess {
		return &models.GenerationResult{Status: b.status, Text: "Generated answer for: " + prompt.Query, Attempts: 1}
	}
	return &models.GenerationResult{Status: b.status, Attempts: 1, Err: common.ErrQuotaExceeded}
}

func (b *fakeBackend) Health() models.BackendHealth {
	return models.BackendHealth{Provider: "fake", BreakerState: "closed"}
}

func (b *fakeBackend) lastPrompt() *models.Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prompts[len(b.prompts)-1]
}

type testEnv struct {
	chat     *ChatService
	backend  *fakeBackend
	manager  interfaces.StorageManager
	index    *vectorindex.Index
	embedder *embeddings.Service
}

func newTestEnv(t *testing.T, status models.GenerationStatus, budget int) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := arbor.NewLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	embedder, err := embeddings.NewService(embeddings.NewHashProvider(testDimension), 16, 0, logger)
	require.NoError(t, err)

	index, err := vectorindex.New(ctx, nil, testDimension, embedder.ModelName(), logger)
	require.NoError(t, err)

	store := conversation.NewStore(manager.SessionStorage(), 10, logger)
	retriever := NewRetriever(embedder, index, manager.ChunkStorage(), manager.DocumentStorage(), store, RetrievalOptions{
		TopK:          5,
		MinSimilarity: 0.1,
		Similarity:    models.SimilarityCosine,
		PromptBudget:  budget,
	}, logger)

	backend := &fakeBackend{status: status}
	service := NewChatService(retriever, store, backend, fallback.NewAdvisor(), 2000, 200, logger)

	return &testEnv{chat: service, backend: backend, manager: manager, index: index, embedder: embedder}
}

// addDocument stores and indexes one chunk per text
func (e *testEnv) addDocument(t *testing.T, docID, filename string, texts ...string) []*models.Chunk {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.manager.DocumentStorage().SaveDocument(ctx, &models.Document{
		ID: docID, Filename: filename, FileType: models.FileTypeTXT, Status: models.DocumentStatusReady,
	}))

	chunks := make([]*models.Chunk, len(texts))
	entries := make([]models.IndexEntry, len(texts))
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	for i, text := range texts {
		chunks[i] = &models.Chunk{ID: fmt.Sprintf("chk_%s_%d", docID, i), DocumentID: docID, Ordinal: i, Text: text}
		entries[i] = models.IndexEntry{ChunkID: chunks[i].ID, DocumentID: docID, Vector: vectors[i]}
	}
	require.NoError(t, e.manager.ChunkStorage().SaveChunks(ctx, chunks))
	require.NoError(t, e.index.Add(ctx, entries))
	return chunks
}

func TestChat_QuotaFallsBackWithSavingsAdvice(t *testing.T) {
	env := newTestEnv(t, models.GenerationQuotaExceeded, 12000)
	ctx := context.Background()

	resp, err := env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_quota", Message: "How can I save more money?"})
	require.NoError(t, err)

	assert.Equal(t, models.TurnOutcomeFallback, resp.Outcome)
	assert.Contains(t, strings.ToLower(resp.Message), "saving")
	assert.NotEmpty(t, resp.Suggestions)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 1, env.backend.calls)

	history, err := env.chat.GetHistory(ctx, "sess_quota")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "How can I save more money?", history[0].Text)
	assert.Equal(t, models.TurnOutcomeFallback, history[1].Outcome)
	assert.Equal(t, resp.Message, history[1].Text)
}

func TestChat_SuccessCitesRetrievedChunks(t *testing.T) {
	env := newTestEnv(t, models.GenerationSuccess, 12000)
	ctx := context.Background()

	long := "Emergency fund guidance: keep six months of household expenses in a liquid savings account. " +
		strings.Repeat("Review the emergency fund every year as expenses grow. ", 6)
	env.addDocument(t, "doc_plan", "plan.txt", long, "Tax filing deadlines fall in July for salaried individuals.")

	resp, err := env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_ok", Message: "How big should my emergency fund be?"})
	require.NoError(t, err)

	assert.Equal(t, models.TurnOutcomeSuccess, resp.Outcome)
	assert.Equal(t, "Generated answer for: How big should my emergency fund be?", resp.Message)
	assert.NotEmpty(t, resp.Suggestions)
	require.NotEmpty(t, resp.Sources)

	first := resp.Sources[0]
	assert.Equal(t, "chk_doc_plan_0", first.ChunkID)
	assert.Equal(t, "plan.txt", first.Filename)
	assert.LessOrEqual(t, len([]rune(first.Snippet)), 203)
	assert.True(t, strings.HasSuffix(first.Snippet, "..."))

	prompt := env.backend.lastPrompt()
	assert.Equal(t, FinanceAdvisorSystemPrompt, prompt.System)
	assert.Contains(t, prompt.Context, "six months of household expenses")
	assert.Contains(t, prompt.SourceChunkIDs, "chk_doc_plan_0")

	history, err := env.chat.GetHistory(ctx, "sess_ok")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, prompt.SourceChunkIDs, history[1].RetrievedChunkIDs)
}

func TestChat_DocumentFilter(t *testing.T) {
	env := newTestEnv(t, models.GenerationSuccess, 12000)
	ctx := context.Background()

	env.addDocument(t, "doc_a", "a.txt", "Mutual fund SIP investing for beginners.")
	env.addDocument(t, "doc_b", "b.txt", "Mutual fund SIP investing for retirees.")

	resp, err := env.chat.Chat(ctx, &models.ChatRequest{
		SessionID:   "sess_filter",
		Message:     "mutual fund SIP investing",
		DocumentIDs: []string{"doc_b"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Sources)
	for _, source := range resp.Sources {
		assert.Equal(t, "doc_b", source.DocumentID)
	}
}

func TestChat_GhostChunkIsIndexInconsistency(t *testing.T) {
	env := newTestEnv(t, models.GenerationSuccess, 12000)
	ctx := context.Background()

	vectors, err := env.embedder.EmbedBatch(ctx, []string{"credit card debt repayment"})
	require.NoError(t, err)
	require.NoError(t, env.index.Add(ctx, []models.IndexEntry{{ChunkID: "chk_ghost", DocumentID: "doc_gone", Vector: vectors[0]}}))

	_, err = env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_ghost", Message: "credit card debt repayment"})
	assert.True(t, errors.Is(err, common.ErrIndexInconsistency))
	assert.Zero(t, env.backend.calls)
}

func TestChat_InvalidRequests(t *testing.T) {
	env := newTestEnv(t, models.GenerationSuccess, 12000)
	ctx := context.Background()

	requests := []*models.ChatRequest{
		nil,
		{SessionID: "", Message: "hi"},
		{SessionID: "sess_x", Message: "   "},
		{SessionID: "sess_x", Message: strings.Repeat("a", 2001)},
	}
	for i, req := range requests {
		_, err := env.chat.Chat(ctx, req)
		assert.True(t, errors.Is(err, common.ErrInvalidRequest), "request %d", i)
	}
	assert.Zero(t, env.backend.calls)
}

func TestChat_ConcurrentSessionsKeepOwnHistory(t *testing.T) {
	env := newTestEnv(t, models.GenerationQuotaExceeded, 12000)
	ctx := context.Background()

	const turns = 5
	sessions := []string{"sess_alpha", "sess_beta"}

	var wg sync.WaitGroup
	errs := make(chan error, len(sessions)*turns)
	for _, sessionID := range sessions {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				_, err := env.chat.Chat(ctx, &models.ChatRequest{
					SessionID: sessionID,
					Message:   fmt.Sprintf("%s question %d about budgeting", sessionID, i),
				})
				errs <- err
			}
		}(sessionID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, sessionID := range sessions {
		history, err := env.chat.GetHistory(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, history, turns*2)
		for i := 0; i < turns; i++ {
			user := history[i*2]
			assert.Equal(t, models.RoleUser, user.Role)
			assert.Equal(t, fmt.Sprintf("%s question %d about budgeting", sessionID, i), user.Text)
			assert.Equal(t, models.RoleAssistant, history[i*2+1].Role)
			assert.Equal(t, i*2+1, user.Seq)
		}
	}
	assert.Zero(t, env.chat.locks.Len(), "session locks are released after each turn")
}

func TestChat_ClearHistory(t *testing.T) {
	env := newTestEnv(t, models.GenerationQuotaExceeded, 12000)
	ctx := context.Background()

	_, err := env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_clear", Message: "tax tips?"})
	require.NoError(t, err)

	require.NoError(t, env.chat.ClearHistory(ctx, "sess_clear"))
	_, err = env.chat.GetHistory(ctx, "sess_clear")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(env.chat.ClearHistory(ctx, "sess_clear"), common.ErrNotFound))
}

func TestRetriever_BudgetPriority(t *testing.T) {
	// System prompt and query always fit; a tight budget admits no chunks and no history
	budget := len([]rune(FinanceAdvisorSystemPrompt)) + 40
	env := newTestEnv(t, models.GenerationSuccess, budget)
	ctx := context.Background()

	env.addDocument(t, "doc_big", "big.txt", strings.Repeat("Index funds offer broad market exposure. ", 10))

	_, err := env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_budget", Message: "index funds exposure"})
	require.NoError(t, err)
	prompt := env.backend.lastPrompt()
	assert.Empty(t, prompt.Context)
	assert.Empty(t, prompt.SourceChunkIDs)
	assert.Equal(t, "index funds exposure", prompt.Query)

	// The previous turn is larger than what is left, so history is dropped whole
	_, err = env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_budget", Message: "index funds exposure"})
	require.NoError(t, err)
	assert.Empty(t, env.backend.lastPrompt().History)
}

func TestRetriever_HistoryIncludedWhenItFits(t *testing.T) {
	env := newTestEnv(t, models.GenerationSuccess, 12000)
	ctx := context.Background()

	_, err := env.chat.Chat(ctx, &models.ChatRequest{SessionID: "sess_hist", Message: "first question"})
	require.NoError(t, err)

	vector, err := env.chat.retriever.EmbedQuery(ctx, "second question")
	require.NoError(t, err)
	retrieval, err := env.chat.retriever.Assemble(ctx, "second question", vector, "sess_hist", nil)
	require.NoError(t, err)
	require.Len(t, retrieval.Prompt.History, 2)
	assert.Equal(t, "first question", retrieval.Prompt.History[0].Text)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short  \n text", 200))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
