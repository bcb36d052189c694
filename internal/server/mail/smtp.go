package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	sc "github.com/corrigo/corrigo/internal/server/config"
)

// SMTPMailer sends mail over SMTP using go-mail.
type SMTPMailer struct {
	cfg *sc.Config
}

func NewSMTPMailer(cfg *sc.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendActivationLink(ctx context.Context, to, firstName, activationURL string) error {
	subject := "Ihr Auftrag bei Corrigo: Konto aktivieren"
	body := fmt.Sprintf(
		"Hallo %s,\n\n"+
			"vielen Dank für Ihre Bestellung. Über den folgenden Link aktivieren Sie Ihr Konto:\n\n"+
			"%s\n\n"+
			"Der Link ist nur einmal und zeitlich begrenzt gültig.\n",
		firstName, activationURL)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendAdminNotification(ctx context.Context, subject, body string) error {
	return m.send(ctx, m.cfg.AdminEmail, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{gomail.WithPort(m.cfg.SMTPPort)}
	if m.cfg.SMTPUser != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.SMTPUser),
			gomail.WithPassword(m.cfg.SMTPPassword))
	} else {
		// Local dev relay (MailHog and friends): no auth, no TLS.
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	client, err := gomail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}
