package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/handlers"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/advisor/internal/services/chat"
	"github.com/ternarybob/advisor/internal/services/conversation"
	"github.com/ternarybob/advisor/internal/services/embeddings"
	"github.com/ternarybob/advisor/internal/services/fallback"
	"github.com/ternarybob/advisor/internal/services/ingest"
	"github.com/ternarybob/advisor/internal/services/llm"
	"github.com/ternarybob/advisor/internal/services/maintenance"
	"github.com/ternarybob/advisor/internal/services/vectorindex"
	"github.com/ternarybob/advisor/internal/storage"
	"github.com/ternarybob/arbor"
)

// closableBackend is a generative backend holding provider resources
type closableBackend interface {
	interfaces.GenerativeBackend
	Close() error
}

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Retrieval services
	EmbeddingService *embeddings.Service
	VectorIndex      *vectorindex.Index
	DocumentService  *ingest.Service

	// Chat services
	Conversations *conversation.Store
	Backend       closableBackend
	Fallback      *fallback.Advisor
	ChatService   *chat.ChatService

	// Maintenance
	AuditScheduler *maintenance.Scheduler

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("llm_provider", app.Backend.Health().Provider).
		Str("embedding_model", app.VectorIndex.Model()).
		Int("vectors", app.VectorIndex.Size()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the Badger store
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.StorageManager = storageManager

	a.Logger.Info().
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds services leaf-first
func (a *App) initServices() error {
	ctx := context.Background()
	var err error

	// 1. Embeddings, falling back to the offline hash provider
	provider, err := embeddings.NewProvider(ctx, a.Config, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Embedding provider unavailable, using offline hash embeddings")
		provider = embeddings.NewHashProvider(a.Config.Embedding.Dimension)
	}

	a.EmbeddingService, err = embeddings.NewService(provider, a.Config.Embedding.BatchSize, a.Config.Embedding.CacheItems, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	// 2. Vector index, restored from storage
	a.VectorIndex, err = vectorindex.New(ctx, a.StorageManager.VectorStorage(), provider.Dimension(), provider.Model(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load vector index: %w", err)
	}

	// 3. Document ingestion
	a.DocumentService, err = ingest.NewService(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.ChunkStorage(),
		a.VectorIndex,
		a.EmbeddingService,
		a.Config.Ingestion,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create document service: %w", err)
	}
	if err := a.DocumentService.RecoverInterrupted(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to recover interrupted ingestions")
	}

	// 4. Conversations
	a.Conversations = conversation.NewStore(a.StorageManager.SessionStorage(), a.Config.Generation.HistoryTurns, a.Logger)

	// 5. Generative backend; chat still answers via fallback without one
	backend, err := llm.NewBackendFromConfig(ctx, a.Config, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Generative backend unavailable, all replies will use fallback guidance")
		a.Backend = llm.NewUnavailableBackend(err)
	} else {
		a.Backend = backend
	}
	a.Fallback = fallback.NewAdvisor()

	// 6. Retrieval and chat
	retriever := chat.NewRetriever(
		a.EmbeddingService,
		a.VectorIndex,
		a.StorageManager.ChunkStorage(),
		a.StorageManager.DocumentStorage(),
		a.Conversations,
		chat.RetrievalOptions{
			TopK:          a.Config.Retrieval.TopK,
			MinSimilarity: a.Config.Retrieval.MinSimilarity,
			Similarity:    models.Similarity(a.Config.Retrieval.Similarity),
			PromptBudget:  a.Config.Generation.PromptBudget,
		},
		a.Logger,
	)

	a.ChatService = chat.NewChatService(
		retriever,
		a.Conversations,
		a.Backend,
		a.Fallback,
		a.Config.Generation.MaxMessageLen,
		a.Config.Retrieval.SnippetLength,
		a.Logger,
	)

	// 7. Index consistency audit
	if a.Config.Maintenance.Enabled {
		auditor := maintenance.NewAuditor(a.VectorIndex, a.StorageManager.ChunkStorage(), a.Config.Maintenance.Repair, a.Logger)
		a.AuditScheduler = maintenance.NewScheduler(auditor, a.Logger)
		if err := a.AuditScheduler.Start(a.Config.Maintenance.Schedule); err != nil {
			return fmt.Errorf("failed to start index audit: %w", err)
		}
		a.AuditScheduler.RunNow()
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	var audits handlers.AuditReporter
	if a.AuditScheduler != nil {
		audits = a.AuditScheduler
	}

	a.APIHandler = handlers.NewAPIHandler(a.ChatService, a.DocumentService, audits, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.DocumentService, a.Config.Ingestion.MaxFileSize, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
}

// Close stops background work and releases resources, leaf services last
func (a *App) Close() error {
	if a.AuditScheduler != nil {
		a.AuditScheduler.Stop()
	}

	if a.DocumentService != nil {
		if err := a.DocumentService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop document ingestion")
		}
	}

	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generative backend")
		}
	}

	if a.EmbeddingService != nil {
		a.EmbeddingService.Close()
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
