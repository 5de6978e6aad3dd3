package flow

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a caller proposes a stage jump that is
// not present in the transition table. Callers must treat this as "stage stays
// where it is", never as a silent overwrite.
var ErrInvalidTransition = errors.New("invalid stage transition")

// InvalidTransitionError carries the rejected edge for audit logging.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// transitions is the fixed forward edge table of the conversation graph.
// Short-circuit edges (e.g. ASK_DEVICE -> BASIC_TESTS when the problem is
// already captured) are part of the table, not special-cased in handlers.
var transitions = map[Stage][]Stage{
	StageAskLanguage:  {StageAskName},
	StageAskName:      {StageAskNeed},
	StageAskNeed:      {StageClassifyNeed},
	StageClassifyNeed: {StageAskDevice, StageDetectDevice, StageAskProblem},
	StageAskDevice:    {StageAskProblem, StageGenerateHowto, StageBasicTests},
	StageDetectDevice: {StageAskProblem, StageGenerateHowto, StageBasicTests},
	StageAskProblem:   {StageGenerateHowto, StageBasicTests, StageAskDevice, StageDetectDevice},
	StageGenerateHowto: {
		StageEnded,
		StageEscalate, // how-to did not solve it
	},
	StageBasicTests:    {StageAdvancedTests, StageEscalate, StageEnded},
	StageAdvancedTests: {StageEscalate, StageEnded},
	StageEscalate:      {StageAskContact, StageCreateTicket, StageEnded},
	StageAskContact:    {StageCreateTicket, StageEnded},
	StageCreateTicket:  {StageTicketSent},
	StageTicketSent:    {StageEnded},
	StageEnded:         {},
}

// topicChangeTargets are the backward jumps permitted ONLY when the turn
// carries an explicit topic-change token. A stage reset without that token is
// always rejected; historical regressions came from silent backward jumps.
var topicChangeTargets = map[Stage]bool{
	StageAskNeed:    true,
	StageAskProblem: true,
}

// Validate reports whether the edge from -> to exists in the transition table.
// It is a pure function: it inspects nothing but the two stage values.
func Validate(from, to Stage) error {
	if !from.IsValid() || !to.IsValid() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if from == to {
		// Staying put is always legal (clarification turns).
		return nil
	}
	for _, legal := range transitions[from] {
		if legal == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// ValidateTopicChange validates a backward jump requested through an explicit
// topic-change token. Tickets are past the point of no return: once a ticket
// exists the conversation can only move forward to ENDED.
func ValidateTopicChange(from, to Stage) error {
	if !from.IsValid() || !to.IsValid() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if from == StageCreateTicket || from == StageTicketSent || from == StageEnded {
		return &InvalidTransitionError{From: from, To: to}
	}
	if topicChangeTargets[to] {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

// Targets returns the legal forward targets for a stage. The slice is a copy.
func Targets(from Stage) []Stage {
	out := make([]Stage, len(transitions[from]))
	copy(out, transitions[from])
	return out
}
