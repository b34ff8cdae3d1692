package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
)

// UnavailableBackend stands in when no provider could be configured.
// Every turn resolves through the fallback advisor.
type UnavailableBackend struct {
	reason error
}

var _ interfaces.GenerativeBackend = (*UnavailableBackend)(nil)

// NewUnavailableBackend records why the real backend could not start
func NewUnavailableBackend(reason error) *UnavailableBackend {
	return &UnavailableBackend{reason: reason}
}

func (u *UnavailableBackend) Generate(ctx context.Context, prompt *models.Prompt) *models.GenerationResult {
	return &models.GenerationResult{
		Status: models.GenerationFatal,
		Err:    fmt.Errorf("%w: %v", common.ErrModelUnavailable, u.reason),
	}
}

func (u *UnavailableBackend) Health() models.BackendHealth {
	return models.BackendHealth{
		Provider:     "none",
		BreakerState: "unavailable",
		LastStatus:   u.reason.Error(),
	}
}

func (u *UnavailableBackend) Close() error {
	return nil
}
