package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/advisor/internal/services/embeddings"
	"github.com/ternarybob/advisor/internal/services/vectorindex"
	"github.com/ternarybob/advisor/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

const testDimension = 64

// blockingEmbedder holds EmbedBatch until released. With ignoreCancel set it
// keeps waiting after ctx is cancelled and still returns vectors.
type blockingEmbedder struct {
	interfaces.EmbeddingService
	started      chan struct{}
	release      chan struct{}
	ignoreCancel bool
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	close(b.started)
	if b.ignoreCancel {
		<-b.release
		return b.EmbeddingService.EmbedBatch(context.WithoutCancel(ctx), texts)
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.EmbeddingService.EmbedBatch(ctx, texts)
}

type testEnv struct {
	service *Service
	manager interfaces.StorageManager
	index   *vectorindex.Index
}

func newTestEnv(t *testing.T, wrap func(interfaces.EmbeddingService) interfaces.EmbeddingService) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := arbor.NewLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)

	embedder, err := embeddings.NewService(embeddings.NewHashProvider(testDimension), 16, 100, logger)
	require.NoError(t, err)
	t.Cleanup(embedder.Close)

	index, err := vectorindex.New(ctx, manager.VectorStorage(), testDimension, embedder.ModelName(), logger)
	require.NoError(t, err)

	var svcEmbedder interfaces.EmbeddingService = embedder
	if wrap != nil {
		svcEmbedder = wrap(embedder)
	}

	cfg := common.NewDefaultConfig().Ingestion
	cfg.MaxFileSize = 4096
	cfg.ChunkSize = 200
	cfg.ChunkOverlap = 40
	cfg.SnapTolerance = 50

	service, err := NewService(manager.DocumentStorage(), manager.ChunkStorage(), index, svcEmbedder, cfg, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		service.Close()
		manager.Close()
	})
	return &testEnv{service: service, manager: manager, index: index}
}

func awaitDocument(t *testing.T, s *Service, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.AwaitDocument(ctx, id))
}

var savingsGuide = strings.Repeat("Automate a monthly transfer into savings. Keep six months of expenses as an emergency fund.\n", 8)

func TestService_SubmitIndexesDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.service.SubmitDocument(ctx, []byte(savingsGuide), "savings.txt", "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusProcessing, result.Status)

	awaitDocument(t, env.service, result.DocumentID)

	doc, err := env.service.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusReady, doc.Status)
	assert.Equal(t, models.FileTypeTXT, doc.FileType)
	require.NotEmpty(t, doc.ChunkIDs)
	assert.Equal(t, len(doc.ChunkIDs), env.index.Size())

	chunks, err := env.manager.ChunkStorage().GetChunksByDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, CleanText(savingsGuide), Reassemble(chunks))

	stats, err := env.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.ByStatus[string(models.DocumentStatusReady)])
	assert.Equal(t, len(chunks), stats.Chunks)
	assert.Equal(t, testDimension, stats.Dimension)
}

func TestService_RejectsInvalidUploads(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.service.SubmitDocument(ctx, make([]byte, 5000), "big.txt", "")
	assert.True(t, errors.Is(err, common.ErrSizeLimitExceeded))

	_, err = env.service.SubmitDocument(ctx, []byte("data"), "archive.zip", "")
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))

	_, err = env.service.SubmitDocument(ctx, nil, "empty.txt", "")
	assert.True(t, IsClientError(err))

	docs, err := env.service.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestService_ExtractionFailureMarksDocumentFailed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.service.SubmitDocument(ctx, []byte("not a pdf"), "statement.pdf", "")
	require.NoError(t, err)
	awaitDocument(t, env.service, result.DocumentID)

	doc, err := env.service.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)
	assert.Zero(t, env.index.Size())
}

func TestService_DeleteDuringIngestionLeavesNoVectors(t *testing.T) {
	var blocker *blockingEmbedder
	env := newTestEnv(t, func(inner interfaces.EmbeddingService) interfaces.EmbeddingService {
		blocker = &blockingEmbedder{EmbeddingService: inner, started: make(chan struct{}), release: make(chan struct{})}
		return blocker
	})
	ctx := context.Background()

	result, err := env.service.SubmitDocument(ctx, []byte(savingsGuide), "savings.txt", "")
	require.NoError(t, err)

	select {
	case <-blocker.started:
	case <-time.After(10 * time.Second):
		t.Fatal("ingestion never reached embedding")
	}

	require.NoError(t, env.service.DeleteDocument(ctx, result.DocumentID))
	close(blocker.release)
	awaitDocument(t, env.service, result.DocumentID)

	_, err = env.service.GetDocument(ctx, result.DocumentID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Zero(t, env.index.Size())

	count, err := env.manager.ChunkStorage().CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_DeleteBeforeIndexInsertDiscardsVectors(t *testing.T) {
	var blocker *blockingEmbedder
	env := newTestEnv(t, func(inner interfaces.EmbeddingService) interfaces.EmbeddingService {
		blocker = &blockingEmbedder{
			EmbeddingService: inner,
			started:          make(chan struct{}),
			release:          make(chan struct{}),
			ignoreCancel:     true,
		}
		return blocker
	})
	ctx := context.Background()

	result, err := env.service.SubmitDocument(ctx, []byte(savingsGuide), "savings.txt", "")
	require.NoError(t, err)

	select {
	case <-blocker.started:
	case <-time.After(10 * time.Second):
		t.Fatal("ingestion never reached embedding")
	}

	// Embedding succeeds after the delete, so only the still-wanted check
	// before the index insert keeps the vectors out.
	require.NoError(t, env.service.DeleteDocument(ctx, result.DocumentID))
	close(blocker.release)
	awaitDocument(t, env.service, result.DocumentID)

	_, err = env.service.GetDocument(ctx, result.DocumentID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Zero(t, env.index.Size())

	count, err := env.manager.ChunkStorage().CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_DeleteRemovesVectors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.service.SubmitDocument(ctx, []byte(savingsGuide), "savings.md", "markdown")
	require.NoError(t, err)
	awaitDocument(t, env.service, result.DocumentID)
	require.NotZero(t, env.index.Size())

	require.NoError(t, env.service.DeleteDocument(ctx, result.DocumentID))
	assert.Zero(t, env.index.Size())

	err = env.service.DeleteDocument(ctx, result.DocumentID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestService_RecoverInterrupted(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	stale := &models.Document{ID: "doc_stale", Filename: "old.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusProcessing}
	require.NoError(t, env.manager.DocumentStorage().SaveDocument(ctx, stale))

	require.NoError(t, env.service.RecoverInterrupted(ctx))

	doc, err := env.service.GetDocument(ctx, "doc_stale")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, doc.Status)
}
