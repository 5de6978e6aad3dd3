package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/mailer"
	"github.com/stirosario/sti-ai-chat-sub006/internal/websocket"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/dialogue"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/events"
	pktNats "github.com/stirosario/sti-ai-chat-sub006/pkg/nats"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/ticket"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService fans a created ticket out to the slow channels: technician
// email, the websocket dashboard feed and the NATS bus. It runs off the
// in-process watermill topics so the user's turn never waits on SMTP.
//
// The email leg rides a durable JetStream consumer rather than the in-process
// bus: the notification must survive a restart between ticket creation and
// delivery. When NATS is down the email is sent inline as a degraded fallback.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	techEmail string
	mail      mailer.IEmailService
	natsPub   *pktNats.Publisher
	natsSub   *pktNats.Subscriber
	tickets   ITicketService
	hub       *websocket.Hub
	log       logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	techEmail string,
	mail mailer.IEmailService,
	natsPub *pktNats.Publisher,
	natsSub *pktNats.Subscriber,
	tickets ITicketService,
	hub *websocket.Hub,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		techEmail: techEmail,
		mail:      mail,
		natsPub:   natsPub,
		natsSub:   natsSub,
		tickets:   tickets,
		hub:       hub,
		log:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	created, err := cs.pubSub.Subscribe(ctx, ticket.TopicTicketCreated)
	if err != nil {
		return err
	}
	ended, err := cs.pubSub.Subscribe(ctx, dialogue.TopicSessionEnded)
	if err != nil {
		return err
	}

	if cs.natsSub != nil && cs.mail != nil && cs.techEmail != "" {
		err := cs.natsSub.Subscribe(
			pktNats.Subject("TICKET_CREATED"), "ticket-mailer", cs.mailTicket,
		)
		if err != nil {
			cs.log.Warn("Consumer", "Durable mailer unavailable, emails go inline", map[string]interface{}{
				"error": err.Error(),
			})
			cs.natsSub = nil
		}
	}

	go func() {
		for msg := range created {
			cs.processTicketCreated(ctx, msg)
		}
	}()
	go func() {
		for msg := range ended {
			cs.processSessionEnded(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processTicketCreated(ctx context.Context, msg *message.Message) {
	var t ticket.Ticket
	if err := json.Unmarshal(msg.Payload, &t); err != nil {
		cs.log.Error("Consumer", "Failed to unmarshal ticket event", map[string]interface{}{
			"error": err.Error(),
		})
		// Ack malformed messages, retrying cannot fix them.
		msg.Ack()
		return
	}

	cs.log.Info("Consumer", "Fanning out created ticket", map[string]interface{}{
		"ticket_id": t.ID,
	})

	if cs.hub != nil {
		cs.hub.BroadcastTicket(dto.TicketSummary{
			Id:        t.ID,
			UserName:  t.UserName,
			Device:    string(t.Device),
			Problem:   t.Problem,
			Status:    string(t.Status),
			CreatedAt: t.CreatedAt,
		})
	}

	relayed := false
	if cs.natsPub != nil {
		if err := cs.natsPub.Publish(ctx, events.NewTicketCreated(t.ID, t.SessionID)); err != nil {
			cs.log.Warn("Consumer", "NATS publish failed", map[string]interface{}{
				"ticket_id": t.ID,
				"error":     err.Error(),
			})
		} else {
			relayed = true
		}
	}

	// Degraded mode: without the stream the durable mailer never sees the
	// ticket, so the notification goes out inline instead.
	if (!relayed || cs.natsSub == nil) && cs.mail != nil && cs.techEmail != "" {
		err := cs.mail.SendTicketNotification(
			cs.techEmail, t.ID, t.UserName, string(t.Device), t.Problem,
			t.ConfirmedSteps, t.FailedSteps,
		)
		if err != nil {
			cs.log.Warn("Consumer", "Ticket email failed", map[string]interface{}{
				"ticket_id": t.ID,
				"error":     err.Error(),
			})
		}
	}

	msg.Ack()
}

func (cs *consumerService) processSessionEnded(ctx context.Context, msg *message.Message) {
	var e struct {
		SessionID string `json:"session_id"`
		TicketID  string `json:"ticket_id"`
	}
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		cs.log.Error("Consumer", "Failed to unmarshal session-ended event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if cs.natsPub != nil {
		if err := cs.natsPub.Publish(ctx, events.NewSessionEnded(e.SessionID, e.TicketID)); err != nil {
			cs.log.Warn("Consumer", "NATS publish failed", map[string]interface{}{
				"session_id": e.SessionID,
				"error":      err.Error(),
			})
		}
	}

	msg.Ack()
}

// mailTicket is the durable JetStream handler: a returned error leaves the
// message unacked so the stream redelivers it after the next restart.
func (cs *consumerService) mailTicket(ctx context.Context, event events.Event) error {
	id, _ := event.Payload()["ticket_id"].(string)
	if id == "" {
		// Nothing to look up, drop it.
		return nil
	}

	t, err := cs.tickets.Show(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up ticket %s: %w", id, err)
	}
	if t == nil {
		cs.log.Warn("Consumer", "Ticket event for unknown ticket", map[string]interface{}{
			"ticket_id": id,
		})
		return nil
	}

	err = cs.mail.SendTicketNotification(
		cs.techEmail, t.Id, t.UserName, t.Device, t.Problem,
		t.ConfirmedSteps, t.FailedSteps,
	)
	if err != nil {
		return fmt.Errorf("mailing ticket %s: %w", id, err)
	}

	cs.log.Info("Consumer", "Ticket notification mailed", map[string]interface{}{
		"ticket_id": id,
	})
	return nil
}
