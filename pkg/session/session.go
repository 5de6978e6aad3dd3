// Package session holds the conversational session model and its write-back
// store: a bounded in-memory cache in front of a pluggable durable backend.
package session

import (
	"fmt"
	"time"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerBot    Speaker = "bot"
	SpeakerSystem Speaker = "system"
)

// TranscriptEntry is immutable once appended.
type TranscriptEntry struct {
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Stage     flow.Stage `json:"stage"`
}

type Tier string

const (
	TierBasic    Tier = "basic"
	TierAdvanced Tier = "advanced"
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepConfirmed StepStatus = "confirmed"
	StepFailed    StepStatus = "failed"
)

type DiagnosticStep struct {
	Index       int        `json:"index"`
	Description string     `json:"description"`
	Tier        Tier       `json:"tier"`
	Status      StepStatus `json:"status"`
}

type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Session is the per-user conversation state. It is mutated only by the
// dialogue orchestrator while holding the per-session lock; everything else
// treats it as read-only.
type Session struct {
	ID               string                    `json:"id"`
	Stage            flow.Stage                `json:"stage"`
	Locale           string                    `json:"locale"`
	UserName         string                    `json:"user_name"`
	Device           classify.Device           `json:"device"`
	DeviceConfidence float64                   `json:"device_confidence"`
	Need             classify.Need             `json:"need"`
	Problem          string                    `json:"problem"`
	ProblemCategory  classify.Problem          `json:"problem_category"`
	Contact          Contact                   `json:"contact"`
	Transcript       []TranscriptEntry         `json:"transcript"`
	Steps            map[Tier][]DiagnosticStep `json:"steps"`
	TicketID         string                    `json:"ticket_id,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	LastActivityAt   time.Time                 `json:"last_activity_at"`

	// Version increases on every persisted mutation; used for optimistic
	// conflict detection between cache and backend copies.
	Version int64 `json:"version"`
}

// New creates a fresh session at the entry stage of the flow.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		Stage:          flow.StageAskLanguage,
		Steps:          make(map[Tier][]DiagnosticStep),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Append adds an immutable transcript entry stamped with the current stage.
// The transcript is append-only; nothing in the codebase removes entries.
func (s *Session) Append(speaker Speaker, text string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
		Stage:     s.Stage,
	})
}

// Clone returns a deep copy. The store hands clones to the background flusher
// so marshaling never shares memory with a turn mutating the live session.
func (s *Session) Clone() *Session {
	c := *s
	c.Transcript = make([]TranscriptEntry, len(s.Transcript))
	copy(c.Transcript, s.Transcript)
	c.Steps = make(map[Tier][]DiagnosticStep, len(s.Steps))
	for tier, steps := range s.Steps {
		cp := make([]DiagnosticStep, len(steps))
		copy(cp, steps)
		c.Steps[tier] = cp
	}
	return &c
}

// Touch records activity and bumps the version counter.
func (s *Session) Touch() {
	s.LastActivityAt = time.Now()
	s.Version++
}

// SetTicketID enforces the at-most-once ticket invariant at the data level.
func (s *Session) SetTicketID(id string) error {
	if s.TicketID != "" && s.TicketID != id {
		return fmt.Errorf("session %s already owns ticket %s", s.ID, s.TicketID)
	}
	s.TicketID = id
	return nil
}

// StepsFor returns the previously generated steps for a tier, if any.
func (s *Session) StepsFor(tier Tier) ([]DiagnosticStep, bool) {
	steps, ok := s.Steps[tier]
	return steps, ok && len(steps) > 0
}

// ResolveStep marks a single step confirmed or failed. Out-of-range indexes
// are ignored.
func (s *Session) ResolveStep(tier Tier, index int, status StepStatus) {
	steps := s.Steps[tier]
	for i := range steps {
		if steps[i].Index == index {
			steps[i].Status = status
			return
		}
	}
}

// ResolveAllSteps stamps every step of a tier with the same outcome, used for
// the "I did everything, still broken" button.
func (s *Session) ResolveAllSteps(tier Tier, status StepStatus) {
	steps := s.Steps[tier]
	for i := range steps {
		steps[i].Status = status
	}
}
