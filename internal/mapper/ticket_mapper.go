package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/stirosario/sti-ai-chat-sub006/internal/entity"
	"github.com/stirosario/sti-ai-chat-sub006/internal/model"
)

type TicketMapper struct{}

func NewTicketMapper() *TicketMapper {
	return &TicketMapper{}
}

func (m *TicketMapper) ToEntity(t *model.Ticket) *entity.Ticket {
	if t == nil {
		return nil
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	var confirmed, failed []string
	var transcript []entity.TranscriptLine
	// Unmarshal errors here mean a hand-edited row; an empty slice beats
	// failing the whole read.
	_ = json.Unmarshal(t.ConfirmedSteps, &confirmed)
	_ = json.Unmarshal(t.FailedSteps, &failed)
	_ = json.Unmarshal(t.Transcript, &transcript)

	return &entity.Ticket{
		Id:              t.Id,
		SessionId:       t.SessionId,
		UserName:        t.UserName,
		Locale:          t.Locale,
		Device:          t.Device,
		Problem:         t.Problem,
		ProblemCategory: t.ProblemCategory,
		ContactEmail:    t.ContactEmail,
		ContactPhone:    t.ContactPhone,
		ConfirmedSteps:  confirmed,
		FailedSteps:     failed,
		Transcript:      transcript,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       updatedAt,
		ClosedAt:        t.ClosedAt,
	}
}

func (m *TicketMapper) ToModel(t *entity.Ticket) *model.Ticket {
	if t == nil {
		return nil
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	confirmed, _ := json.Marshal(t.ConfirmedSteps)
	failed, _ := json.Marshal(t.FailedSteps)
	transcript, _ := json.Marshal(t.Transcript)

	return &model.Ticket{
		Id:              t.Id,
		SessionId:       t.SessionId,
		UserName:        t.UserName,
		Locale:          t.Locale,
		Device:          t.Device,
		Problem:         t.Problem,
		ProblemCategory: t.ProblemCategory,
		ContactEmail:    t.ContactEmail,
		ContactPhone:    t.ContactPhone,
		ConfirmedSteps:  datatypes.JSON(confirmed),
		FailedSteps:     datatypes.JSON(failed),
		Transcript:      datatypes.JSON(transcript),
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       updatedAt,
		ClosedAt:        t.ClosedAt,
	}
}

func (m *TicketMapper) ToEntities(tickets []*model.Ticket) []*entity.Ticket {
	entities := make([]*entity.Ticket, len(tickets))
	for i, t := range tickets {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
