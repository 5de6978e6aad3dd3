package entity

import (
	"time"
)

// TranscriptLine is one conversation message carried into the ticket record.
type TranscriptLine struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
}

type Ticket struct {
	Id              string
	SessionId       string
	UserName        string
	Locale          string
	Device          string
	Problem         string
	ProblemCategory string
	ContactEmail    string
	ContactPhone    string
	ConfirmedSteps  []string
	FailedSteps     []string
	Transcript      []TranscriptLine
	Status          string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	ClosedAt        *time.Time
}
