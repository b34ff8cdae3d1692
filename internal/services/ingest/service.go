package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"
)

// ingestTask tracks one background ingestion. mu guards the final index
// insert against a concurrent delete.
type ingestTask struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Service implements interfaces.DocumentService
type Service struct {
	docs       interfaces.DocumentStorage
	chunks     interfaces.ChunkStorage
	index      interfaces.VectorIndex
	embeddings interfaces.EmbeddingService
	extractor  *Extractor
	chunker    *Chunker
	config     common.IngestionConfig
	allowed    map[models.FileType]bool
	logger     arbor.ILogger

	sem     *semaphore.Weighted
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*ingestTask
}

// Compile-time assertion
var _ interfaces.DocumentService = (*Service)(nil)

// NewService creates a new document ingestion service
func NewService(
	docs interfaces.DocumentStorage,
	chunks interfaces.ChunkStorage,
	index interfaces.VectorIndex,
	embeddings interfaces.EmbeddingService,
	config common.IngestionConfig,
	logger arbor.ILogger,
) (*Service, error) {
	chunker, err := NewChunker(config)
	if err != nil {
		return nil, err
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	allowed := make(map[models.FileType]bool)
	for _, t := range config.AllowedTypes {
		ft, err := ResolveFileType(t, "")
		if err != nil {
			return nil, fmt.Errorf("ingestion.allowed_types: %w", err)
		}
		allowed[ft] = true
	}

	baseCtx, stop := context.WithCancel(context.Background())

	return &Service{
		docs:       docs,
		chunks:     chunks,
		index:      index,
		embeddings: embeddings,
		extractor:  NewExtractor(),
		chunker:    chunker,
		config:     config,
		allowed:    allowed,
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(workers)),
		baseCtx:    baseCtx,
		stop:       stop,
		tasks:      make(map[string]*ingestTask),
	}, nil
}

// SubmitDocument validates the upload, records it as processing and indexes it in the background
func (s *Service) SubmitDocument(ctx context.Context, data []byte, filename, declaredType string) (*models.SubmitResult, error) {
	fileType, err := ResolveFileType(declaredType, filename)
	if err != nil {
		return nil, err
	}
	if len(s.allowed) > 0 && !s.allowed[fileType] {
		return nil, fmt.Errorf("%w: %s uploads are disabled", common.ErrUnsupportedFormat, fileType)
	}

	// Checked on raw bytes before any parser sees the content
	if int64(len(data)) > s.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", common.ErrSizeLimitExceeded, len(data), s.config.MaxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrInvalidRequest)
	}

	doc := &models.Document{
		ID:        common.NewDocumentID(),
		Filename:  filename,
		FileType:  fileType,
		Status:    models.DocumentStatusProcessing,
		SizeBytes: int64(len(data)),
	}

	// Registered before the document is visible so a delete always finds the task
	taskCtx, cancel := context.WithCancel(s.baseCtx)
	task := &ingestTask{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.tasks[doc.ID] = task
	s.mu.Unlock()

	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		cancel()
		s.mu.Lock()
		delete(s.tasks, doc.ID)
		s.mu.Unlock()
		return nil, err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", filename).
		Str("file_type", string(fileType)).
		Int("size_bytes", len(data)).
		Msg("Document accepted for ingestion")

	s.wg.Add(1)
	common.SafeGo(s.logger, "ingest:"+doc.ID, func() {
		defer s.wg.Done()
		defer s.finishTask(doc.ID, task)
		s.process(taskCtx, task, doc, data)
	})

	return &models.SubmitResult{DocumentID: doc.ID, Status: models.DocumentStatusProcessing}, nil
}

func (s *Service) finishTask(documentID string, task *ingestTask) {
	task.cancel()
	close(task.done)

	s.mu.Lock()
	if s.tasks[documentID] == task {
		delete(s.tasks, documentID)
	}
	s.mu.Unlock()
}

func (s *Service) process(ctx context.Context, task *ingestTask, doc *models.Document, data []byte) {
	startTime := time.Now()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.logger.Debug().Str("document_id", doc.ID).Msg("Ingestion cancelled before start")
		return
	}
	defer s.sem.Release(1)

	raw, err := s.extractor.Extract(doc.FileType, data)
	if err != nil {
		s.fail(ctx, task, doc, err)
		return
	}

	content := CleanText(raw)
	if content == "" {
		s.fail(ctx, task, doc, fmt.Errorf("%w: no text content found", common.ErrExtraction))
		return
	}

	chunks := s.chunker.Split(doc.ID, content)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		s.fail(ctx, task, doc, err)
		return
	}
	if len(vectors) != len(chunks) {
		s.fail(ctx, task, doc, fmt.Errorf("%w: got %d vectors for %d chunks", common.ErrModelUnavailable, len(vectors), len(chunks)))
		return
	}

	task.mu.Lock()
	defer task.mu.Unlock()

	// Deleted while processing: the delete owns cleanup
	if task.cancelled {
		s.logger.Info().Str("document_id", doc.ID).Msg("Document deleted during ingestion, discarding results")
		return
	}

	// Detached from ctx so a shutdown cannot leave half-written state
	writeCtx := context.WithoutCancel(ctx)

	entries := make([]models.IndexEntry, len(chunks))
	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.IndexEntry{ChunkID: chunk.ID, DocumentID: doc.ID, Vector: vectors[i]}
		chunkIDs[i] = chunk.ID
	}

	if err := s.chunks.SaveChunks(writeCtx, chunks); err != nil {
		s.failLocked(writeCtx, doc, err)
		return
	}
	if err := s.index.Add(writeCtx, entries); err != nil {
		_ = s.chunks.DeleteChunksByDocument(writeCtx, doc.ID)
		s.failLocked(writeCtx, doc, err)
		return
	}

	doc.RawText = content
	doc.ChunkIDs = chunkIDs
	doc.Status = models.DocumentStatusReady
	doc.Error = ""
	if err := s.docs.SaveDocument(writeCtx, doc); err != nil {
		_, _ = s.index.DeleteDocument(writeCtx, doc.ID)
		_ = s.chunks.DeleteChunksByDocument(writeCtx, doc.ID)
		s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to mark document ready")
		return
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Int("chunks", len(chunks)).
		Int("characters", len([]rune(content))).
		Dur("duration", time.Since(startTime)).
		Msg("Document indexed")
}

func (s *Service) fail(ctx context.Context, task *ingestTask, doc *models.Document, cause error) {
	task.mu.Lock()
	defer task.mu.Unlock()
	if task.cancelled {
		return
	}
	s.failLocked(context.WithoutCancel(ctx), doc, cause)
}

func (s *Service) failLocked(ctx context.Context, doc *models.Document, cause error) {
	s.logger.Warn().Err(cause).Str("document_id", doc.ID).Str("filename", doc.Filename).Msg("Document ingestion failed")

	doc.Status = models.DocumentStatusFailed
	doc.Error = cause.Error()
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to record ingestion failure")
	}
}

// DeleteDocument removes the document with its chunks and vectors.
// An in-flight ingestion is cancelled and will not insert into the index.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.docs.GetDocument(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	task := s.tasks[id]
	s.mu.Unlock()

	if task != nil {
		task.mu.Lock()
		defer task.mu.Unlock()
		task.cancelled = true
		task.cancel()
	}

	removed, err := s.index.DeleteDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to remove vectors: %w", err)
	}
	if err := s.chunks.DeleteChunksByDocument(ctx, id); err != nil {
		return err
	}
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("document_id", id).Int("vectors_removed", removed).Bool("in_flight", task != nil).Msg("Document deleted")
	return nil
}

// GetDocument returns a document with its status and chunk ids
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// ListDocuments returns all documents, newest first
func (s *Service) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	return s.docs.ListDocuments(ctx)
}

// Stats summarizes documents, chunks and the vector index
func (s *Service) Stats(ctx context.Context) (*models.DocumentStats, error) {
	byStatus, err := s.docs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}

	chunks, err := s.chunks.CountChunks(ctx)
	if err != nil {
		return nil, err
	}

	return &models.DocumentStats{
		Documents:  total,
		ByStatus:   byStatus,
		Chunks:     chunks,
		Vectors:    s.index.Size(),
		Dimension:  s.index.Dimension(),
		EmbedModel: s.index.Model(),
	}, nil
}

// AwaitDocument blocks until background ingestion of id has finished
func (s *Service) AwaitDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	task := s.tasks[id]
	s.mu.Unlock()
	if task == nil {
		return nil
	}

	select {
	case <-task.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverInterrupted marks documents left processing by a previous run as failed
func (s *Service) RecoverInterrupted(ctx context.Context) error {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if doc.Status != models.DocumentStatusProcessing {
			continue
		}
		s.mu.Lock()
		_, running := s.tasks[doc.ID]
		s.mu.Unlock()
		if running {
			continue
		}

		doc.Status = models.DocumentStatusFailed
		doc.Error = "ingestion interrupted by shutdown"
		if err := s.docs.SaveDocument(ctx, doc); err != nil {
			return err
		}
		s.logger.Warn().Str("document_id", doc.ID).Msg("Marked interrupted ingestion as failed")
	}
	return nil
}

// Close cancels in-flight ingestion and waits for workers to exit
func (s *Service) Close() error {
	s.stop()
	s.wg.Wait()
	return nil
}

// IsClientError reports whether err was caused by the upload itself
func IsClientError(err error) bool {
	return errors.Is(err, common.ErrUnsupportedFormat) ||
		errors.Is(err, common.ErrSizeLimitExceeded) ||
		errors.Is(err, common.ErrInvalidRequest)
}
