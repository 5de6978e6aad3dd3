package mailer

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendTicketNotification(toEmail, ticketID, userName, device, problem string, confirmedSteps, failedSteps []string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
	}
}

// SendTicketNotification mails the technician inbox when a ticket is created.
// Failure here never blocks the conversation: the caller logs and moves on,
// the ticket is already durable.
func (s *emailService) SendTicketNotification(toEmail, ticketID, userName, device, problem string, confirmedSteps, failedSteps []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Nuevo ticket %s", ticketID))

	if userName == "" {
		userName = "(sin nombre)"
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Nuevo ticket de soporte</h2>
			<p><b>Ticket:</b> %s</p>
			<p><b>Usuario:</b> %s</p>
			<p><b>Equipo:</b> %s</p>
			<p><b>Problema:</b> %s</p>
			<p><b>Pasos realizados:</b> %s</p>
			<p><b>Pasos sin éxito:</b> %s</p>
		</div>
	`, ticketID, userName, device, problem,
		joinOrDash(confirmedSteps), joinOrDash(failedSteps))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send ticket notification: %w", err)
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, "; ")
}
