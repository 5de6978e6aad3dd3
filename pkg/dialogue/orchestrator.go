// Package dialogue drives the multi-turn support conversation: per-stage
// handlers over the flow transition table, admission guards in front, the
// write-back session store behind.
package dialogue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/guard"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/steps"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/ticket"
)

// TopicSessionEnded carries terminal-stage notifications on the in-process
// bus; the consumer service relays them to NATS for external systems.
const TopicSessionEnded = "SESSION_ENDED"

type sessionEndedEvent struct {
	SessionID string `json:"session_id"`
	TicketID  string `json:"ticket_id,omitempty"`
}

// StepSource is the slice of the step generator the orchestrator needs.
type StepSource interface {
	Generate(ctx context.Context, req steps.Request) []session.DiagnosticStep
}

// TicketCreator is the slice of the ticket engine the orchestrator needs.
type TicketCreator interface {
	CreateTicketOnce(ctx context.Context, sess *session.Session) (*ticket.Ticket, error)
	DeepLink(t *ticket.Ticket) string
}

// Config tunes the orchestrator's admission and classification behavior.
type Config struct {
	// DeviceConfidenceThreshold separates "detected, just confirm" from "ask
	// outright".
	DeviceConfidenceThreshold float64
}

// turnHandler processes one turn for the stage it is registered under.
type turnHandler func(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error

// Orchestrator owns the turn pipeline: rate limit, capacity, per-session lock,
// load, handle, validate transition, persist. All session mutation happens
// here, under the lock.
type Orchestrator struct {
	cfg       Config
	store     *session.Store
	locks     *session.KeyLock
	limiter   *guard.RateLimiter // per-session, on turns
	ipLimiter *guard.RateLimiter // per-IP, on session creation
	guard     *guard.ConcurrencyGuard
	steps     StepSource
	tickets   TicketCreator
	bus       message.Publisher
	log       logger.ILogger

	handlers map[flow.Stage]turnHandler
}

func NewOrchestrator(
	cfg Config,
	store *session.Store,
	locks *session.KeyLock,
	limiter *guard.RateLimiter,
	ipLimiter *guard.RateLimiter,
	capGuard *guard.ConcurrencyGuard,
	stepSource StepSource,
	tickets TicketCreator,
	bus message.Publisher,
	log logger.ILogger,
) *Orchestrator {
	if cfg.DeviceConfidenceThreshold <= 0 {
		cfg.DeviceConfidenceThreshold = 0.6
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     store,
		locks:     locks,
		limiter:   limiter,
		ipLimiter: ipLimiter,
		guard:     capGuard,
		steps:     stepSource,
		tickets:   tickets,
		bus:       bus,
		log:       log,
	}
	o.handlers = map[flow.Stage]turnHandler{
		flow.StageAskLanguage:   o.handleAskLanguage,
		flow.StageAskName:       o.handleAskName,
		flow.StageAskNeed:       o.handleAskNeed,
		flow.StageClassifyNeed:  o.handleAskNeed,
		flow.StageAskDevice:     o.handleAskDevice,
		flow.StageDetectDevice:  o.handleDetectDevice,
		flow.StageAskProblem:    o.handleAskProblem,
		flow.StageGenerateHowto: o.handleHowtoOutcome,
		flow.StageBasicTests:    o.handleBasicOutcome,
		flow.StageAdvancedTests: o.handleAdvancedOutcome,
		flow.StageEscalate:      o.handleEscalate,
		flow.StageAskContact:    o.handleAskContact,
		flow.StageCreateTicket:  o.handleCreateTicket,
		flow.StageTicketSent:    o.handleTicketSent,
		flow.StageEnded:         o.handleSessionOver,
	}
	return o
}

// StartSession admits and creates a new session and returns the greeting with
// the language choices. The greeting is the one bot message sent before a
// locale exists, so it is trilingual.
func (o *Orchestrator) StartSession(ctx context.Context, clientIP string) (*TurnOutput, error) {
	if err := o.ipLimiter.CheckAndConsume(clientIP, 1); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if err := o.guard.RegisterActivity(id); err != nil {
		return nil, err
	}

	sess := session.New(id)
	sess.Append(session.SpeakerBot, greetingText)
	sess.Touch()
	o.store.Save(ctx, sess)

	o.log.Info("Dialogue", "Session started", map[string]interface{}{
		"session_id": id,
	})

	return &TurnOutput{
		SessionID: id,
		Stage:     sess.Stage,
		Reply:     greetingText,
		Buttons:   languageButtons(),
	}, nil
}

// HandleTurn runs one user turn end to end. Guard errors surface unchanged so
// the boundary can map them (429, 503, busy) without inspecting the message.
func (o *Orchestrator) HandleTurn(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	if err := o.limiter.CheckAndConsume(in.SessionID, 1); err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := o.store.Load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	// Activity is registered only once the session is known to exist, so a
	// client-invented id can never occupy a capacity slot.
	if err := o.guard.RegisterActivity(sess.ID); err != nil {
		return nil, err
	}

	out := &TurnOutput{SessionID: sess.ID}

	if in.Text != "" {
		sess.Append(session.SpeakerUser, in.Text)
	} else if in.ButtonID != "" {
		sess.Append(session.SpeakerUser, "["+in.ButtonID+"]")
	}
	if in.Analysis != "" {
		// Opaque image-analysis verdict: recorded and folded into the problem
		// description, never interpreted.
		sess.Append(session.SpeakerSystem, in.Analysis)
		if sess.Problem == "" {
			sess.Problem = in.Analysis
		} else {
			sess.Problem = sess.Problem + " " + in.Analysis
		}
	}

	prev := sess.Stage
	if err := o.dispatch(ctx, sess, in, out); err != nil {
		return nil, err
	}

	out.Stage = sess.Stage
	out.Ended = sess.Stage.Terminal()
	if out.Reply != "" {
		sess.Append(session.SpeakerBot, out.Reply)
	}
	sess.Touch()
	o.store.Save(ctx, sess)

	if out.Ended {
		o.guard.Release(sess.ID)
		if prev != flow.StageEnded {
			o.publishEnded(sess)
		}
	}
	return out, nil
}

// Transcript returns a copy of the session's transcript and its current stage,
// serialized with turns through the per-session lock so the copy is never torn
// by a mutation in flight.
func (o *Orchestrator) Transcript(ctx context.Context, sessionID string) (flow.Stage, []session.TranscriptEntry, error) {
	release, err := o.locks.Acquire(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	defer release()

	sess, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	entries := make([]session.TranscriptEntry, len(sess.Transcript))
	copy(entries, sess.Transcript)
	return sess.Stage, entries, nil
}

// dispatch looks the stage's handler up in the handler table. The explicit
// topic-change token is resolved first so every stage honors it uniformly.
func (o *Orchestrator) dispatch(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	if in.ButtonID == BtnNewTopic {
		return o.handleNewTopic(sess, out)
	}

	h, ok := o.handlers[sess.Stage]
	if !ok {
		return fmt.Errorf("session %s in unknown stage %q", sess.ID, sess.Stage)
	}
	return h(ctx, sess, in, out)
}

func (o *Orchestrator) publishEnded(sess *session.Session) {
	if o.bus == nil {
		return
	}
	payload, err := json.Marshal(sessionEndedEvent{SessionID: sess.ID, TicketID: sess.TicketID})
	if err != nil {
		return
	}
	if err := o.bus.Publish(TopicSessionEnded, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		o.log.Warn("Dialogue", "Failed to publish session-ended event", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

// advance validates and applies one edge of the transition table, keeping the
// stage where it is on a rejected edge. Every accepted and rejected jump goes
// to the flow audit log.
func (o *Orchestrator) advance(sess *session.Session, to flow.Stage, out *TurnOutput, replyText string) error {
	if err := flow.Validate(sess.Stage, to); err != nil {
		o.log.Error("Dialogue", "Rejected stage transition", map[string]interface{}{
			"session_id": sess.ID,
			"from":       string(sess.Stage),
			"to":         string(to),
		})
		return err
	}
	o.log.Debug("Dialogue", "Stage transition", map[string]interface{}{
		"session_id": sess.ID,
		"from":       string(sess.Stage),
		"to":         string(to),
	})
	sess.Stage = to
	if replyText != "" {
		out.Reply = replyText
	}
	return nil
}

func (o *Orchestrator) handleNewTopic(sess *session.Session, out *TurnOutput) error {
	if err := flow.ValidateTopicChange(sess.Stage, flow.StageAskProblem); err != nil {
		o.log.Warn("Dialogue", "Topic change rejected", map[string]interface{}{
			"session_id": sess.ID,
			"from":       string(sess.Stage),
		})
		out.Reply = reply(sess.Locale, "new_topic_rejected")
		return nil
	}

	o.log.Debug("Dialogue", "Stage transition", map[string]interface{}{
		"session_id": sess.ID,
		"from":       string(sess.Stage),
		"to":         string(flow.StageAskProblem),
		"reason":     "topic_change",
	})

	sess.Stage = flow.StageAskProblem
	sess.Problem = ""
	sess.ProblemCategory = ""
	sess.Steps = make(map[session.Tier][]session.DiagnosticStep)
	out.Reply = reply(sess.Locale, "new_topic")
	return nil
}
