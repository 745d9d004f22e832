package notify

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strconv"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends decision notifications to requesters. Sending is best-effort:
// callers fire it from a goroutine and a failure only produces a log line.
type Mailer interface {
	Send(to []string, subject, html string) error
}

type smtpMailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	skipTLSVerify bool
}

// NewSMTPMailer builds a mailer from SMTP_* environment variables.
func NewSMTPMailer() Mailer {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return &smtpMailer{
		host:          os.Getenv("SMTP_HOST"),
		port:          port,
		user:          os.Getenv("SMTP_USER"),
		pass:          os.Getenv("SMTP_PASS"),
		from:          os.Getenv("SMTP_FROM"), // e.g. "Factory System <no-reply@factory.local>"
		skipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
}

func (m *smtpMailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify,
	}

	return d.DialAndSend(msg)
}

// noopMailer is used when SMTP is not configured so services don't branch.
type noopMailer struct{}

func (noopMailer) Send(to []string, subject, html string) error {
	log.Printf("mail disabled, would send %q to %v", subject, to)
	return nil
}

// NewMailerFromEnv returns the SMTP mailer when configured, a no-op otherwise.
func NewMailerFromEnv() Mailer {
	if os.Getenv("SMTP_HOST") == "" {
		return noopMailer{}
	}
	return NewSMTPMailer()
}
