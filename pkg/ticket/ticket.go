package ticket

import (
	"context"
	"time"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Ticket is the escalation record handed to a human technician. Immutable
// after creation except Status.
type Ticket struct {
	ID              string                    `json:"id"`
	SessionID       string                    `json:"session_id"`
	CreatedAt       time.Time                 `json:"created_at"`
	UserName        string                    `json:"user_name"`
	Locale          string                    `json:"locale"`
	Device          classify.Device           `json:"device"`
	Problem         string                    `json:"problem"`
	ProblemCategory classify.Problem          `json:"problem_category"`
	Contact         session.Contact           `json:"contact"`
	ConfirmedSteps  []string                  `json:"confirmed_steps"`
	FailedSteps     []string                  `json:"failed_steps"`
	Transcript      []session.TranscriptEntry `json:"transcript"`
	Status          Status                    `json:"status"`
}

// Repository is the persistence port for tickets; the gorm adapter lives in
// internal/repository.
type Repository interface {
	Save(ctx context.Context, t *Ticket) error
	FindByID(ctx context.Context, id string) (*Ticket, error)
}
