package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type SMTPConfig interface {
	GetAppName() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpSender() string
}

// SMTPSender delivers multipart text/HTML mail through an authenticated SMTP relay.
type SMTPSender struct {
	config   SMTPConfig
	codeTTL  time.Duration
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(config SMTPConfig, codeTTL time.Duration) *SMTPSender {
	return &SMTPSender{
		config:   config,
		codeTTL:  codeTTL,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, code string) error {
	return s.send(ctx, buildOTPEmail(email, otpData{
		SiteName:  s.config.GetAppName(),
		Code:      code,
		ExpiresIn: humanDuration(s.codeTTL),
	}))
}

func (s *SMTPSender) SendInvitation(ctx context.Context, email, orgName, inviterEmail, link string) error {
	return s.send(ctx, buildInvitationEmail(email, invitationData{
		SiteName:     s.config.GetAppName(),
		OrgName:      orgName,
		InviterEmail: inviterEmail,
		Link:         link,
	}))
}

func (s *SMTPSender) send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := encode(s.config.GetSmtpSender(), email)
	if err != nil {
		return errors.Wrap(err, "encode email")
	}
	host := s.config.GetSmtpHost()
	addr := net.JoinHostPort(host, s.config.GetSmtpPort())
	var auth smtp.Auth
	if account := s.config.GetSmtpAccount(); account != "" {
		auth = smtp.PlainAuth("", account, s.config.GetSmtpPassword(), host)
	}
	if err := s.sendMail(addr, auth, s.config.GetSmtpSender(), []string{email.To}, msg); err != nil {
		return errors.Wrapf(err, "send %q", email.Subject)
	}
	log.Debug().Str("subject", email.Subject).Msg("email sent")
	return nil
}

func encode(from string, email Email) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", email.TextBody},
		{"text/html; charset=UTF-8", email.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
