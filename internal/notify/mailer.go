// Package notify sends outbound e-mail through an HTTP mail relay.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

var ErrNotConfigured = errors.New("email endpoint not configured")

// Email is the JSON body the relay expects.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type Mailer struct {
	endpoint string
	timeout  time.Duration
}

func NewMailer(endpoint string) *Mailer {
	return &Mailer{endpoint: endpoint, timeout: 10 * time.Second}
}

// Send posts the message once. Any non-2xx answer is an error.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if m == nil || m.endpoint == "" {
		return ErrNotConfigured
	}
	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(m.endpoint).JSON(email).Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("send email: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("send email: relay answered %d: %s", code, body)
	}
	logger.AuditLogger.Info("Email sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// AssignmentEmail is the message sent to an employee when a task is assigned.
func AssignmentEmail(to, name, title, dueDate string) Email {
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("Hi %s,\n\nYou have been assigned a new task: %s.", name, title)
	if dueDate != "" {
		text += fmt.Sprintf("\nDue date: %s.", dueDate)
	}
	return Email{To: to, Subject: "New task assigned: " + title, Text: text}
}
