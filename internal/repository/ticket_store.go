// Package repository adapts the gorm-backed ticket persistence to the engine's
// storage port.
package repository

import (
	"context"

	"github.com/stirosario/sti-ai-chat-sub006/internal/entity"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/specification"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/unitofwork"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/ticket"
)

// TicketStore implements ticket.Repository on top of the unit-of-work layer.
type TicketStore struct {
	factory unitofwork.RepositoryFactory
}

var _ ticket.Repository = &TicketStore{}

func NewTicketStore(factory unitofwork.RepositoryFactory) *TicketStore {
	return &TicketStore{factory: factory}
}

func (s *TicketStore) Save(ctx context.Context, t *ticket.Ticket) error {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.TicketRepository().Create(ctx, toEntity(t))
}

func (s *TicketStore) FindByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	e, err := uow.TicketRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	return fromEntity(e), nil
}

func toEntity(t *ticket.Ticket) *entity.Ticket {
	lines := make([]entity.TranscriptLine, len(t.Transcript))
	for i, entry := range t.Transcript {
		lines[i] = entity.TranscriptLine{
			Speaker:   string(entry.Speaker),
			Text:      entry.Text,
			Timestamp: entry.Timestamp,
			Stage:     string(entry.Stage),
		}
	}

	return &entity.Ticket{
		Id:              t.ID,
		SessionId:       t.SessionID,
		UserName:        t.UserName,
		Locale:          t.Locale,
		Device:          string(t.Device),
		Problem:         t.Problem,
		ProblemCategory: string(t.ProblemCategory),
		ContactEmail:    t.Contact.Email,
		ContactPhone:    t.Contact.Phone,
		ConfirmedSteps:  t.ConfirmedSteps,
		FailedSteps:     t.FailedSteps,
		Transcript:      lines,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
	}
}

func fromEntity(e *entity.Ticket) *ticket.Ticket {
	if e == nil {
		return nil
	}

	transcript := make([]session.TranscriptEntry, len(e.Transcript))
	for i, line := range e.Transcript {
		transcript[i] = session.TranscriptEntry{
			Speaker:   session.Speaker(line.Speaker),
			Text:      line.Text,
			Timestamp: line.Timestamp,
			Stage:     flow.Stage(line.Stage),
		}
	}

	return &ticket.Ticket{
		ID:              e.Id,
		SessionID:       e.SessionId,
		CreatedAt:       e.CreatedAt,
		UserName:        e.UserName,
		Locale:          e.Locale,
		Device:          classify.Device(e.Device),
		Problem:         e.Problem,
		ProblemCategory: classify.Problem(e.ProblemCategory),
		Contact:         session.Contact{Email: e.ContactEmail, Phone: e.ContactPhone},
		ConfirmedSteps:  e.ConfirmedSteps,
		FailedSteps:     e.FailedSteps,
		Transcript:      transcript,
		Status:          ticket.Status(e.Status),
	}
}
