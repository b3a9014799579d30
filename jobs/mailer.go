package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay such as Mailpit.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers the message. The relay is assumed to be on a trusted
// network, so no auth is attempted.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", m.from, to, subject, body)
	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg))
}

// MailJob processes mail:send tasks.
type MailJob struct {
	mailer Mailer
	logger *slog.Logger
}

// NewMailJob constructs the handler.
func NewMailJob(mailer Mailer, logger *slog.Logger) *MailJob {
	return &MailJob{mailer: mailer, logger: logger}
}

// Handle delivers the queued email.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		j.logger.Warn("mail task without recipient dropped", slog.String("subject", payload.Subject))
		return asynq.SkipRetry
	}
	if err := j.mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		j.logger.Error("send email failed", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}
