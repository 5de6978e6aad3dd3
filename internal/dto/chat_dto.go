package dto

// GreetingResponse opens a conversation: a fresh session id, the trilingual
// greeting and the language quick replies.
type GreetingResponse struct {
	SessionId string       `json:"sessionId"`
	Reply     string       `json:"reply"`
	Stage     string       `json:"stage"`
	Buttons   []ButtonItem `json:"buttons,omitempty"`
}

// ChatMessageRequest is one user turn. Clients send text, a button id, or
// both; the session id comes from the greeting. Analysis carries an opaque
// verdict from an out-of-band image analysis and is folded into the problem
// description.
type ChatMessageRequest struct {
	SessionId string `json:"sessionId" validate:"required,uuid4"`
	Text      string `json:"text" validate:"max=2000"`
	ButtonId  string `json:"buttonId" validate:"max=40"`
	Analysis  string `json:"analysis" validate:"max=2000"`
}

type ChatTranscriptResponse struct {
	SessionId string           `json:"sessionId"`
	Stage     string           `json:"stage"`
	Entries   []TranscriptItem `json:"entries"`
}

type ButtonItem struct {
	Id    string `json:"id"`
	Label string `json:"label"`
}

type StepItem struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	Status      string `json:"status"`
}

type ChatMessageResponse struct {
	SessionId   string       `json:"sessionId"`
	Stage       string       `json:"stage"`
	Reply       string       `json:"reply"`
	Buttons     []ButtonItem `json:"buttons,omitempty"`
	Steps       []StepItem   `json:"steps,omitempty"`
	TicketId    string       `json:"ticketId,omitempty"`
	WhatsAppUrl string       `json:"whatsappUrl,omitempty"`
	Ended       bool         `json:"ended"`
}
