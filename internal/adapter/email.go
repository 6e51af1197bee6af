package adapter

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// EmailAdapter delivers over SMTP with STARTTLS when the server offers
// it. Server replies in the 4xx range are reported as retryable, 5xx as
// permanent.
type EmailAdapter struct {
	cfg config.SMTPConfig
}

// NewEmailAdapter creates a new EmailAdapter
func NewEmailAdapter(cfg config.SMTPConfig) *EmailAdapter {
	return &EmailAdapter{cfg: cfg}
}

func (a *EmailAdapter) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send delivers one message to the recipient's email address.
func (a *EmailAdapter) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	if recipient.Email == "" {
		return domain.ErrRecipientMissing
	}

	body := buildMIMEMessage(a.cfg.From, recipient.Email, msg)

	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
	dialer := net.Dialer{Timeout: a.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return domain.NewTransientAdapterError(fmt.Sprintf("smtp dial failed: %v", err))
	}

	// One deadline covers the whole SMTP conversation.
	deadline := time.Now().Add(a.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return domain.NewTransientAdapterError(fmt.Sprintf("smtp deadline failed: %v", err))
	}

	client, err := smtp.NewClient(conn, a.cfg.Host)
	if err != nil {
		conn.Close()
		return classifySMTPError(err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: a.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return classifySMTPError(err)
		}
	}

	if a.cfg.Username != "" && a.cfg.Password != "" {
		auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return classifySMTPError(err)
		}
	}

	if err := client.Mail(a.cfg.From); err != nil {
		return classifySMTPError(err)
	}
	if err := client.Rcpt(recipient.Email); err != nil {
		return classifySMTPError(err)
	}

	writer, err := client.Data()
	if err != nil {
		return classifySMTPError(err)
	}
	if _, err := writer.Write(body); err != nil {
		writer.Close()
		return classifySMTPError(err)
	}
	if err := writer.Close(); err != nil {
		return classifySMTPError(err)
	}

	// Delivery is accepted at this point; a failed QUIT is not an error.
	_ = client.Quit()

	return nil
}

// buildMIMEMessage renders the wire form of the email. With an HTML body
// it emits multipart/alternative with the HTML part last, so capable
// clients prefer it.
func buildMIMEMessage(from, to string, msg domain.Message) []byte {
	var buf bytes.Buffer

	header := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	header("From", from)
	header("To", to)
	header("Subject", msg.Title)
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if msg.HTMLBody == "" {
		header("Content-Type", `text/plain; charset="UTF-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes()
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", fmt.Sprintf(`multipart/alternative; boundary=%q`, mw.Boundary()))
	buf.WriteString("\r\n")

	text, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="UTF-8"`},
	})
	fmt.Fprint(text, msg.Body)

	html, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="UTF-8"`},
	})
	fmt.Fprint(html, msg.HTMLBody)

	mw.Close()
	return buf.Bytes()
}

// classifySMTPError maps an SMTP failure onto the adapter taxonomy. 5xx
// replies are final per RFC 5321; everything else is worth a retry.
func classifySMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return domain.NewPermanentAdapterError(fmt.Sprintf("smtp rejected: %v", err))
	}
	return domain.NewTransientAdapterError(fmt.Sprintf("smtp failed: %v", err))
}
