package dialogue

import (
	"regexp"
	"strings"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

// TurnInput is one user turn: free text, a button token, or both (clients send
// the button id when the user taps a quick reply). Analysis is an opaque
// verdict from an out-of-band image analysis; it is treated as extra problem
// description, never interpreted here.
type TurnInput struct {
	SessionID string
	Text      string
	ButtonID  string
	Analysis  string
	ClientIP  string // rate-limit identity fallback for pre-session calls
}

// TurnOutput is the bot's side of the turn.
type TurnOutput struct {
	SessionID   string                   `json:"session_id"`
	Stage       flow.Stage               `json:"stage"`
	Reply       string                   `json:"reply"`
	Buttons     []Button                 `json:"buttons,omitempty"`
	Steps       []session.DiagnosticStep `json:"steps,omitempty"`
	TicketID    string                   `json:"ticket_id,omitempty"`
	WhatsAppURL string                   `json:"whatsapp_url,omitempty"`
	Ended       bool                     `json:"ended"`
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{6,}\d`)
)

// parseContact extracts an email and/or phone number from free text. Either
// one alone is enough to create a ticket.
func parseContact(text string) (session.Contact, bool) {
	var c session.Contact
	if m := emailPattern.FindString(text); m != "" {
		c.Email = m
	}
	// Strip the email before phone matching so the digits in something like
	// "juan123@mail.com" are not mistaken for a number.
	rest := emailPattern.ReplaceAllString(text, " ")
	if m := phonePattern.FindString(rest); m != "" {
		c.Phone = strings.TrimSpace(m)
	}
	return c, c.Email != "" || c.Phone != ""
}

// sanitizeName trims and caps a self-reported name; anything weirder stays as
// the user typed it.
func sanitizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) > 60 {
		name = name[:60]
	}
	return name
}
