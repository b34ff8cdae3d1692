package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// Scheduler runs the consistency audit on a cron schedule
type Scheduler struct {
	auditor *Auditor
	cron    *cron.Cron
	logger  arbor.ILogger

	mu   sync.Mutex
	last *models.AuditReport
}

// NewScheduler creates a new audit scheduler
func NewScheduler(auditor *Auditor, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		auditor: auditor,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled audit
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: hourly
		schedule = "0 0 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runAudit); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Index audit scheduler started")

	return nil
}

// Stop stops the scheduler and waits for a running audit
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Index audit scheduler stopped")
}

// RunNow triggers an immediate audit in the background
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate index audit")
	common.SafeGo(s.logger, "index-audit", s.runAudit)
}

// LastReport returns the most recent audit report, or nil before the first run
func (s *Scheduler) LastReport() *models.AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	startTime := time.Now()
	report, err := s.auditor.Audit(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled index audit failed")
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.logger.Info().
		Int("vectors", report.Vectors).
		Int("ghost_chunks", len(report.GhostChunks)).
		Bool("repaired", report.Repaired).
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled index audit completed")
}
