package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

// TopicTicketCreated is the in-process bus topic the consumer service
// subscribes to for email/NATS/websocket fan-out.
const TopicTicketCreated = "TICKET_CREATED"

// Engine creates at most one ticket per session and builds the technician
// hand-off material (summary text + WhatsApp deep link). Idempotency under
// concurrent invocation is guaranteed by the caller holding the per-session
// lock; the engine re-checks the session's ticket id as a second line of
// defense and treats a conflict as a concurrency-control defect.
type Engine struct {
	repo           Repository
	bus            message.Publisher
	whatsAppNumber string
	log            logger.ILogger
}

func NewEngine(repo Repository, bus message.Publisher, whatsAppNumber string, log logger.ILogger) *Engine {
	return &Engine{
		repo:           repo,
		bus:            bus,
		whatsAppNumber: whatsAppNumber,
		log:            log,
	}
}

// CreateTicketOnce returns the session's ticket, creating it on first call.
// Subsequent calls (including retried turns) return the existing record.
func (e *Engine) CreateTicketOnce(ctx context.Context, sess *session.Session) (*Ticket, error) {
	if sess.TicketID != "" {
		existing, err := e.repo.FindByID(ctx, sess.TicketID)
		if err != nil {
			return nil, fmt.Errorf("load existing ticket %s: %w", sess.TicketID, err)
		}
		if existing != nil {
			return existing, nil
		}
		// The session claims a ticket the repository has never seen. With the
		// per-session lock held this should be impossible; investigate, do not
		// silently recreate under a new id.
		e.logDefect(sess)
		return nil, fmt.Errorf("session %s references missing ticket %s", sess.ID, sess.TicketID)
	}

	t := buildTicket(sess)
	if err := sess.SetTicketID(t.ID); err != nil {
		e.logDefect(sess)
		return nil, err
	}

	if err := e.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("persist ticket %s: %w", t.ID, err)
	}

	e.publishCreated(t)
	return t, nil
}

// DeepLink builds the WhatsApp hand-off URL carrying the ticket summary. No
// message is sent; the end user opens the link themselves.
func (e *Engine) DeepLink(t *Ticket) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", e.whatsAppNumber, url.QueryEscape(Summary(t)))
}

// Summary renders the human-readable technician hand-off text.
func Summary(t *Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s\n", t.ID)
	fmt.Fprintf(&b, "Fecha: %s\n", t.CreatedAt.Format("02/01/2006 15:04"))
	if t.UserName != "" {
		fmt.Fprintf(&b, "Usuario: %s\n", t.UserName)
	}
	if t.Device != "" {
		fmt.Fprintf(&b, "Equipo: %s\n", t.Device)
	}
	fmt.Fprintf(&b, "Problema: %s\n", t.Problem)
	if len(t.ConfirmedSteps) > 0 {
		fmt.Fprintf(&b, "Pasos realizados: %s\n", strings.Join(t.ConfirmedSteps, "; "))
	}
	if len(t.FailedSteps) > 0 {
		fmt.Fprintf(&b, "Pasos sin éxito: %s\n", strings.Join(t.FailedSteps, "; "))
	}
	if t.Contact.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", t.Contact.Email)
	}
	if t.Contact.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", t.Contact.Phone)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildTicket(sess *session.Session) *Ticket {
	now := time.Now()

	var confirmed, failed []string
	for _, tier := range []session.Tier{session.TierBasic, session.TierAdvanced} {
		for _, step := range sess.Steps[tier] {
			switch step.Status {
			case session.StepConfirmed:
				confirmed = append(confirmed, step.Description)
			case session.StepFailed:
				failed = append(failed, step.Description)
			}
		}
	}

	transcript := make([]session.TranscriptEntry, len(sess.Transcript))
	copy(transcript, sess.Transcript)

	return &Ticket{
		ID:              newTicketID(now),
		SessionID:       sess.ID,
		CreatedAt:       now,
		UserName:        sess.UserName,
		Locale:          sess.Locale,
		Device:          sess.Device,
		Problem:         sess.Problem,
		ProblemCategory: sess.ProblemCategory,
		Contact:         sess.Contact,
		ConfirmedSteps:  confirmed,
		FailedSteps:     failed,
		Transcript:      transcript,
		Status:          StatusOpen,
	}
}

func newTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("STI-%s-%s", now.Format("20060102-150405"), suffix)
}

func (e *Engine) publishCreated(t *Ticket) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := e.bus.Publish(TopicTicketCreated, message.NewMessage(watermill.NewUUID(), payload)); err != nil && e.log != nil {
		e.log.Warn("TicketEngine", "Failed to publish ticket event", map[string]interface{}{
			"ticket_id": t.ID,
			"error":     err.Error(),
		})
	}
}

func (e *Engine) logDefect(sess *session.Session) {
	if e.log == nil {
		return
	}
	// A duplicate-ticket attempt means the per-session lock was bypassed.
	e.log.Error("TicketEngine", "Duplicate ticket attempt, concurrency control defect", map[string]interface{}{
		"session_id": sess.ID,
		"ticket_id":  sess.TicketID,
	})
}
