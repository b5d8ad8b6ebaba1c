package ports

import (
	"context"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// DialogueService is the inbound contract for one conversation turn.
// State rides in and out with the caller; the core keeps nothing between calls.
type DialogueService interface {
	HandleTurn(ctx context.Context, message string, state domain.AgentState) (*domain.TurnResult, error)
}
