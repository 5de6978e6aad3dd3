package service

import (
	"context"
	"time"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/internal/entity"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/specification"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/unitofwork"
)

type ITicketService interface {
	Show(ctx context.Context, id string) (*dto.ShowTicketResponse, error)
	List(ctx context.Context, req *dto.ListTicketsRequest) (*dto.ListTicketsResponse, error)
	Close(ctx context.Context, id string) (*dto.CloseTicketResponse, error)
}

type ticketService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewTicketService(uowFactory unitofwork.RepositoryFactory) ITicketService {
	return &ticketService{uowFactory: uowFactory}
}

func (s *ticketService) Show(ctx context.Context, id string) (*dto.ShowTicketResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	t, err := uow.TicketRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil || t == nil {
		return nil, err
	}
	return toShowResponse(t), nil
}

func (s *ticketService) List(ctx context.Context, req *dto.ListTicketsRequest) (*dto.ListTicketsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TicketRepository()

	filters := []specification.Specification{}
	if req.Status != "" {
		filters = append(filters, specification.ByStatus{Status: req.Status})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)

	tickets, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := &dto.ListTicketsResponse{Total: total, Tickets: make([]dto.TicketSummary, len(tickets))}
	for i, t := range tickets {
		res.Tickets[i] = dto.TicketSummary{
			Id:        t.Id,
			UserName:  t.UserName,
			Device:    t.Device,
			Problem:   t.Problem,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
		}
	}
	return res, nil
}

func (s *ticketService) Close(ctx context.Context, id string) (*dto.CloseTicketResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TicketRepository()

	t, err := repo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil || t == nil {
		return nil, err
	}

	if t.Status != "closed" {
		now := time.Now()
		t.Status = "closed"
		t.ClosedAt = &now
		if err := repo.Update(ctx, t); err != nil {
			return nil, err
		}
	}

	return &dto.CloseTicketResponse{Id: t.Id, Status: t.Status, ClosedAt: t.ClosedAt}, nil
}

func toShowResponse(t *entity.Ticket) *dto.ShowTicketResponse {
	transcript := make([]dto.TranscriptItem, len(t.Transcript))
	for i, line := range t.Transcript {
		transcript[i] = dto.TranscriptItem{
			Speaker:   line.Speaker,
			Text:      line.Text,
			Timestamp: line.Timestamp,
			Stage:     line.Stage,
		}
	}

	return &dto.ShowTicketResponse{
		Id:              t.Id,
		SessionId:       t.SessionId,
		UserName:        t.UserName,
		Locale:          t.Locale,
		Device:          t.Device,
		Problem:         t.Problem,
		ProblemCategory: t.ProblemCategory,
		ContactEmail:    t.ContactEmail,
		ContactPhone:    t.ContactPhone,
		ConfirmedSteps:  t.ConfirmedSteps,
		FailedSteps:     t.FailedSteps,
		Transcript:      transcript,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		ClosedAt:        t.ClosedAt,
	}
}
