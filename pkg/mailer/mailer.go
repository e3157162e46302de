package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"service-dispatch/pkg/config"
)

var ErrNoRecipients = errors.New("mailer: no recipients")

type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

type SMTPMailer struct {
	cfg     config.MailConfig
	now     func() time.Time
	deliver deliverFunc
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.deliver = m.dialAndSend
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}

	msg, err := BuildMessage(m.cfg.From, to, subject, htmlBody, m.now())
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send via %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	return nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// BuildMessage assembles an HTML message. Addresses are parsed, so a
// recipient or sender carrying extra header lines is rejected.
func BuildMessage(from string, to []string, subject, htmlBody string, date time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mailer: sender %q: %w", from, err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("mailer: recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(date)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}
