package dto

import "time"

// Ticket DTOs serve the technician dashboard (JWT protected routes).

type TranscriptItem struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
}

type ShowTicketResponse struct {
	Id              string           `json:"id"`
	SessionId       string           `json:"session_id"`
	UserName        string           `json:"user_name"`
	Locale          string           `json:"locale"`
	Device          string           `json:"device"`
	Problem         string           `json:"problem"`
	ProblemCategory string           `json:"problem_category"`
	ContactEmail    string           `json:"contact_email"`
	ContactPhone    string           `json:"contact_phone"`
	ConfirmedSteps  []string         `json:"confirmed_steps"`
	FailedSteps     []string         `json:"failed_steps"`
	Transcript      []TranscriptItem `json:"transcript"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	ClosedAt        *time.Time       `json:"closed_at,omitempty"`
}

type ListTicketsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=open closed"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type TicketSummary struct {
	Id        string    `json:"id"`
	UserName  string    `json:"user_name"`
	Device    string    `json:"device"`
	Problem   string    `json:"problem"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ListTicketsResponse struct {
	Tickets []TicketSummary `json:"tickets"`
	Total   int64           `json:"total"`
}

type CloseTicketResponse struct {
	Id       string     `json:"id"`
	Status   string     `json:"status"`
	ClosedAt *time.Time `json:"closed_at"`
}
