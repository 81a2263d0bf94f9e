// Package alert sends an email when a monitor's failure count crosses a
// threshold.
package alert

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/softee/managed/monitor"
)

// Sender delivers an alert message.
type Sender interface {
	Send(subject, body string) error
}

// SendGridSender delivers alerts via the SendGrid API.
type SendGridSender struct {
	client      *sendgrid.Client
	fromName    string
	fromAddress string
	to          string
}

func NewSendGridSender(apiKey, fromName, fromAddress, to string) *SendGridSender {
	return &SendGridSender{
		client:      sendgrid.NewSendClient(apiKey),
		fromName:    fromName,
		fromAddress: fromAddress,
		to:          to,
	}
}

func (s *SendGridSender) Send(subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromAddress)
	toEmail := mail.NewEmail("", s.to)
	email := mail.NewSingleEmail(from, subject, toEmail, body, body)

	response, err := s.client.Send(email)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	return nil
}

// Notifier watches a tracker's failure count. Check sends one alert per
// threshold crossing and re-arms once the count drops below the threshold
// again (normally after a reset).
type Notifier struct {
	stats     *monitor.StatisticsTracker
	subject   string
	threshold int64
	sender    Sender
	fired     bool
}

func NewNotifier(stats *monitor.StatisticsTracker, subject string, threshold int64, sender Sender) *Notifier {
	return &Notifier{
		stats:     stats,
		subject:   subject,
		threshold: threshold,
		sender:    sender,
	}
}

// Check compares the current failure count against the threshold and sends
// at most one alert until re-armed.
func (n *Notifier) Check() error {
	failed := n.stats.FailedCount()
	if failed < n.threshold {
		n.fired = false
		return nil
	}
	if n.fired {
		return nil
	}

	body := fmt.Sprintf("%d messages failed (threshold %d).", failed, n.threshold)
	if cause, ok := n.stats.FailedCause(); ok {
		body += fmt.Sprintf("\n\nLatest failure: %s", cause.Message)
	}

	if err := n.sender.Send(n.subject, body); err != nil {
		return err
	}
	n.fired = true

	log.Printf("Alert sent: %s (%d failures)", n.subject, failed)
	return nil
}
