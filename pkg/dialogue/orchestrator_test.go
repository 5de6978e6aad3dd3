package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/guard"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/steps"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/ticket"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fixedSteps struct{}

func (fixedSteps) Generate(_ context.Context, req steps.Request) []session.DiagnosticStep {
	texts := []string{"Paso uno", "Paso dos", "Paso tres"}
	if req.Tier == session.TierAdvanced {
		texts = []string{"Paso avanzado uno", "Paso avanzado dos"}
	}
	out := make([]session.DiagnosticStep, len(texts))
	for i, t := range texts {
		out[i] = session.DiagnosticStep{Index: i + 1, Description: t, Tier: req.Tier, Status: session.StepPending}
	}
	return out
}

type fakeTickets struct {
	created atomic.Int32
}

func (f *fakeTickets) CreateTicketOnce(_ context.Context, sess *session.Session) (*ticket.Ticket, error) {
	if sess.TicketID != "" {
		return &ticket.Ticket{ID: sess.TicketID, SessionID: sess.ID}, nil
	}
	id := fmt.Sprintf("STI-TEST-%04d", f.created.Add(1))
	if err := sess.SetTicketID(id); err != nil {
		return nil, err
	}
	return &ticket.Ticket{ID: id, SessionID: sess.ID, Contact: sess.Contact}, nil
}

func (f *fakeTickets) DeepLink(t *ticket.Ticket) string {
	return "https://wa.me/5493410000001?text=" + t.ID
}

type fixture struct {
	orch    *Orchestrator
	store   *session.Store
	locks   *session.KeyLock
	tickets *fakeTickets
	bus     *gochannel.GoChannel
}

func newFixture(t *testing.T, maxPerWindow, maxActive int) *fixture {
	t.Helper()

	store := session.NewStore(session.NewMemoryBackend(time.Hour), session.StoreConfig{
		CacheSize: 100, SessionTTL: time.Hour, RetentionTTL: time.Hour,
	}, nopLogger{})
	locks := session.NewKeyLock(100 * time.Millisecond)
	tickets := &fakeTickets{}
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	orch := NewOrchestrator(
		Config{DeviceConfidenceThreshold: 0.6},
		store,
		locks,
		guard.NewRateLimiter(time.Minute, maxPerWindow),
		guard.NewRateLimiter(time.Minute, 100),
		guard.NewConcurrencyGuard(maxActive, time.Hour),
		fixedSteps{},
		tickets,
		bus,
		nopLogger{},
	)
	return &fixture{orch: orch, store: store, locks: locks, tickets: tickets, bus: bus}
}

func (f *fixture) turn(t *testing.T, id string, in TurnInput) *TurnOutput {
	t.Helper()
	in.SessionID = id
	out, err := f.orch.HandleTurn(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestHappyPathSolvedAtBasicTier(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()

	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, flow.StageAskLanguage, greeting.Stage)
	require.Len(t, greeting.Buttons, 3)
	id := greeting.SessionID

	out := f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	assert.Equal(t, flow.StageAskName, out.Stage)

	out = f.turn(t, id, TurnInput{Text: "Marta"})
	assert.Equal(t, flow.StageAskNeed, out.Stage)
	assert.Contains(t, out.Reply, "Marta")

	// Free text carries need, device and problem at once: the classifier is
	// confident about "notebook", so only a confirmation is asked.
	out = f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})
	assert.Equal(t, flow.StageDetectDevice, out.Stage)
	assert.Contains(t, out.Reply, "notebook")

	out = f.turn(t, id, TurnInput{ButtonID: BtnYes})
	assert.Equal(t, flow.StageBasicTests, out.Stage)
	require.Len(t, out.Steps, 3)
	assert.Contains(t, out.Reply, "Paso uno")

	out = f.turn(t, id, TurnInput{ButtonID: BtnSolved})
	assert.Equal(t, flow.StageEnded, out.Stage)
	assert.True(t, out.Ended)

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StepConfirmed, sess.Steps[session.TierBasic][0].Status)
	assert.Empty(t, sess.TicketID)
}

func TestEscalationCreatesOneTicket(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()

	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})
	f.turn(t, id, TurnInput{ButtonID: BtnYes})

	// Basic exhausted, advanced exhausted, escalation accepted.
	out := f.turn(t, id, TurnInput{ButtonID: BtnTestsDone})
	assert.Equal(t, flow.StageAdvancedTests, out.Stage)
	require.Len(t, out.Steps, 2)

	out = f.turn(t, id, TurnInput{ButtonID: BtnTestsDone})
	assert.Equal(t, flow.StageEscalate, out.Stage)

	out = f.turn(t, id, TurnInput{ButtonID: BtnYes})
	assert.Equal(t, flow.StageAskContact, out.Stage)

	// A message with no usable contact re-asks.
	out = f.turn(t, id, TurnInput{Text: "no tengo"})
	assert.Equal(t, flow.StageAskContact, out.Stage)

	out = f.turn(t, id, TurnInput{Text: "soy marta@example.com o al 341 555-0000"})
	assert.Equal(t, flow.StageTicketSent, out.Stage)
	assert.NotEmpty(t, out.TicketID)
	assert.Contains(t, out.WhatsAppURL, "wa.me")
	assert.Contains(t, out.Reply, out.TicketID)
	assert.Equal(t, int32(1), f.tickets.created.Load())

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "marta@example.com", sess.Contact.Email)
	assert.NotEmpty(t, sess.Contact.Phone)

	// Anything after the ticket ends the conversation; no second ticket.
	out = f.turn(t, id, TurnInput{Text: "gracias"})
	assert.Equal(t, flow.StageEnded, out.Stage)
	assert.Equal(t, int32(1), f.tickets.created.Load())
}

func TestHowtoPath(t *testing.T) {
	f := newFixture(t, 100, 10)
	greeting, err := f.orch.StartSession(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEn})
	f.turn(t, id, TurnInput{Text: "Joe"})

	out := f.turn(t, id, TurnInput{Text: "how to install the printer driver"})
	assert.Equal(t, flow.StageDetectDevice, out.Stage)

	out = f.turn(t, id, TurnInput{ButtonID: BtnYes})
	assert.Equal(t, flow.StageGenerateHowto, out.Stage)
	require.NotEmpty(t, out.Steps)

	out = f.turn(t, id, TurnInput{ButtonID: BtnSolved})
	assert.True(t, out.Ended)
}

func TestAmbiguousNeedKeepsProblemText(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})

	// "se ve raro" carries neither a clear need nor a device.
	out := f.turn(t, id, TurnInput{Text: "la pantalla se ve raro"})
	assert.Equal(t, flow.StageAskNeed, out.Stage, "ambiguous input must not advance the stage")
	require.Len(t, out.Buttons, 2)

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "la pantalla se ve raro", sess.Problem, "description must survive the clarification round-trip")

	// Choosing the button resolves the need; the kept description routes the
	// flow straight to the device question.
	out = f.turn(t, id, TurnInput{ButtonID: BtnHelp})
	assert.Equal(t, flow.StageAskDevice, out.Stage)

	out = f.turn(t, id, TurnInput{Text: "es una notebook"})
	assert.Equal(t, flow.StageBasicTests, out.Stage, "kept problem text must skip the problem question")
}

func TestTopicChangeToken(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})
	f.turn(t, id, TurnInput{ButtonID: BtnYes})

	// Mid-diagnosis, the explicit token resets to the problem question and
	// clears the generated steps.
	out := f.turn(t, id, TurnInput{ButtonID: BtnNewTopic})
	assert.Equal(t, flow.StageAskProblem, out.Stage)

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, sess.Problem)
	assert.Empty(t, sess.Steps[session.TierBasic])
}

func TestTopicChangeRejectedAfterTicket(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})
	f.turn(t, id, TurnInput{ButtonID: BtnYes})
	f.turn(t, id, TurnInput{ButtonID: BtnTestsFail})
	f.turn(t, id, TurnInput{ButtonID: BtnYes})
	out := f.turn(t, id, TurnInput{Text: "marta@example.com"})
	require.Equal(t, flow.StageTicketSent, out.Stage)

	out = f.turn(t, id, TurnInput{ButtonID: BtnNewTopic})
	assert.Equal(t, flow.StageTicketSent, out.Stage, "ticket stages admit no backward jump")
}

func TestRateLimitSurfacesThrottledError(t *testing.T) {
	f := newFixture(t, 3, 10)
	greeting, err := f.orch.StartSession(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})

	_, err = f.orch.HandleTurn(context.Background(), TurnInput{SessionID: id, ButtonID: BtnYes})
	var throttled *guard.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))
}

func TestCapacityRejectsNewSessions(t *testing.T) {
	f := newFixture(t, 100, 2)
	ctx := context.Background()

	_, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.orch.StartSession(ctx, "10.0.0.2")
	require.NoError(t, err)

	_, err = f.orch.StartSession(ctx, "10.0.0.3")
	assert.ErrorIs(t, err, guard.ErrCapacity)
}

func TestConcurrentTurnSameSessionIsBusy(t *testing.T) {
	f := newFixture(t, 100, 10)
	greeting, err := f.orch.StartSession(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	release, err := f.locks.Acquire(context.Background(), id)
	require.NoError(t, err)
	defer release()

	_, err = f.orch.HandleTurn(context.Background(), TurnInput{SessionID: id, ButtonID: BtnLangEsAR})
	assert.ErrorIs(t, err, session.ErrBusy)
}

func TestAnalysisVerdictFeedsProblem(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{ButtonID: BtnHelp})
	out := f.turn(t, id, TurnInput{Text: "es una notebook"})
	require.Equal(t, flow.StageAskProblem, out.Stage)

	// A turn carrying only the image-analysis verdict stands in for the
	// problem description.
	out = f.turn(t, id, TurnInput{Analysis: "pantalla con franjas verticales"})
	assert.Equal(t, flow.StageBasicTests, out.Stage)

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pantalla con franjas verticales", sess.Problem)
}

func TestTranscriptReadBack(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{Text: "Marta"})

	stage, entries, err := f.orch.Transcript(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, flow.StageAskNeed, stage)
	require.NotEmpty(t, entries)
	assert.Equal(t, session.SpeakerBot, entries[0].Speaker)
	assert.Equal(t, "[BTN_LANG_ES_AR]", entries[1].Text)

	_, _, err = f.orch.Transcript(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newFixture(t, 100, 10)
	_, err := f.orch.HandleTurn(context.Background(), TurnInput{SessionID: "nope", Text: "hola"})
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUnknownSessionDoesNotConsumeCapacity(t *testing.T) {
	f := newFixture(t, 100, 2)
	ctx := context.Background()

	// A spray of invented ids must not occupy capacity slots.
	for _, id := range []string{"bogus-1", "bogus-2", "bogus-3"} {
		_, err := f.orch.HandleTurn(ctx, TurnInput{SessionID: id, Text: "hola"})
		require.ErrorIs(t, err, session.ErrNotFound)
	}

	// Both slots are still free for real users.
	_, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.orch.StartSession(ctx, "10.0.0.2")
	require.NoError(t, err)
}

func TestUnknownStageRejected(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()
	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	sess, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	sess.Stage = flow.Stage("LIMBO")
	f.store.Save(ctx, sess)

	_, err = f.orch.HandleTurn(ctx, TurnInput{SessionID: id, Text: "hola"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LIMBO")
}

func TestSessionEndedEventPublished(t *testing.T) {
	f := newFixture(t, 100, 10)
	ctx := context.Background()

	msgs, err := f.bus.Subscribe(ctx, TopicSessionEnded)
	require.NoError(t, err)

	greeting, err := f.orch.StartSession(ctx, "10.0.0.1")
	require.NoError(t, err)
	id := greeting.SessionID

	f.turn(t, id, TurnInput{ButtonID: BtnLangEsAR})
	f.turn(t, id, TurnInput{ButtonID: BtnNoName})
	f.turn(t, id, TurnInput{Text: "mi notebook no enciende"})
	f.turn(t, id, TurnInput{ButtonID: BtnYes})
	out := f.turn(t, id, TurnInput{ButtonID: BtnSolved})
	require.True(t, out.Ended)

	select {
	case msg := <-msgs:
		var payload sessionEndedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, id, payload.SessionID)
		assert.Empty(t, payload.TicketID)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no session-ended event published")
	}

	// A postscript message at the terminal stage must not republish.
	f.turn(t, id, TurnInput{Text: "gracias"})
	select {
	case <-msgs:
		t.Fatal("terminal stage republished its event")
	case <-time.After(50 * time.Millisecond):
	}
}
