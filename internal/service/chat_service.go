package service

import (
	"context"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/dialogue"
)

type IChatService interface {
	Greeting(ctx context.Context, clientIP string) (*dto.GreetingResponse, error)
	Message(ctx context.Context, req *dto.ChatMessageRequest) (*dto.ChatMessageResponse, error)
	Transcript(ctx context.Context, sessionID string) (*dto.ChatTranscriptResponse, error)
}

// chatService is a thin seam between the HTTP boundary and the orchestrator:
// DTO translation only, no conversation logic.
type chatService struct {
	orch *dialogue.Orchestrator
}

func NewChatService(orch *dialogue.Orchestrator) IChatService {
	return &chatService{orch: orch}
}

func (s *chatService) Greeting(ctx context.Context, clientIP string) (*dto.GreetingResponse, error) {
	out, err := s.orch.StartSession(ctx, clientIP)
	if err != nil {
		return nil, err
	}
	return &dto.GreetingResponse{
		SessionId: out.SessionID,
		Reply:     out.Reply,
		Stage:     string(out.Stage),
		Buttons:   toButtonItems(out.Buttons),
	}, nil
}

func (s *chatService) Message(ctx context.Context, req *dto.ChatMessageRequest) (*dto.ChatMessageResponse, error) {
	out, err := s.orch.HandleTurn(ctx, dialogue.TurnInput{
		SessionID: req.SessionId,
		Text:      req.Text,
		ButtonID:  req.ButtonId,
		Analysis:  req.Analysis,
	})
	if err != nil {
		return nil, err
	}

	res := &dto.ChatMessageResponse{
		SessionId:   out.SessionID,
		Stage:       string(out.Stage),
		Reply:       out.Reply,
		Buttons:     toButtonItems(out.Buttons),
		TicketId:    out.TicketID,
		WhatsAppUrl: out.WhatsAppURL,
		Ended:       out.Ended,
	}
	for _, step := range out.Steps {
		res.Steps = append(res.Steps, dto.StepItem{
			Index:       step.Index,
			Description: step.Description,
			Tier:        string(step.Tier),
			Status:      string(step.Status),
		})
	}
	return res, nil
}

func (s *chatService) Transcript(ctx context.Context, sessionID string) (*dto.ChatTranscriptResponse, error) {
	stage, entries, err := s.orch.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := &dto.ChatTranscriptResponse{
		SessionId: sessionID,
		Stage:     string(stage),
		Entries:   make([]dto.TranscriptItem, len(entries)),
	}
	for i, e := range entries {
		res.Entries[i] = dto.TranscriptItem{
			Speaker:   string(e.Speaker),
			Text:      e.Text,
			Timestamp: e.Timestamp,
			Stage:     string(e.Stage),
		}
	}
	return res, nil
}

func toButtonItems(buttons []dialogue.Button) []dto.ButtonItem {
	if len(buttons) == 0 {
		return nil
	}
	items := make([]dto.ButtonItem, len(buttons))
	for i, b := range buttons {
		items[i] = dto.ButtonItem{Id: b.ID, Label: b.Label}
	}
	return items
}
