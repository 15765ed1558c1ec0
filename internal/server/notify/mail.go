// Package notify delivers one-time download codes to file owners by email.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dmitrijs2005/geocrypt/internal/common"
)

// Sender delivers a code to a recipient address.
type Sender interface {
	Send(ctx context.Context, recipient, code string) error
}

// mailer is the part of *mail.Client used by SMTPSender.
type mailer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// CodeTTL is quoted in the message body.
	CodeTTL time.Duration
}

// SMTPSender sends codes through an SMTP relay with STARTTLS.
type SMTPSender struct {
	client  mailer
	from    string
	timeout time.Duration
	ttl     time.Duration
}

// NewSMTPSender builds the mail client once. Authentication is enabled when
// a username is configured, and then TLS is mandatory.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	clientOpts := []mail.Option{mail.WithPort(opts.Port)}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(opts.Timeout))
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return newSMTPSender(c, opts.From, opts.Timeout, opts.CodeTTL), nil
}

func newSMTPSender(c mailer, from string, timeout, ttl time.Duration) *SMTPSender {
	return &SMTPSender{client: c, from: from, timeout: timeout, ttl: ttl}
}

func (s *SMTPSender) message(recipient, code string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(recipient); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject("Your GeoCrypt download code")
	m.SetBodyString(mail.TypeTextPlain, body(code, s.ttl))
	return m, nil
}

func body(code string, ttl time.Duration) string {
	if ttl <= 0 {
		return fmt.Sprintf("Your one-time download code is: %s\n", code)
	}
	return fmt.Sprintf("Your one-time download code is: %s\n\nIt expires in %d seconds and can be used once.\n",
		code, int(ttl.Seconds()))
}

// Send delivers code to recipient. Any failure, including a malformed
// address, is reported as common.ErrNotificationFailed.
func (s *SMTPSender) Send(ctx context.Context, recipient, code string) error {
	m, err := s.message(recipient, code)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrNotificationFailed, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: smtp send: %w", common.ErrNotificationFailed, err)
	}
	return nil
}
