package notify

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type smtpConfig struct{}

func (smtpConfig) GetAppName() string      { return "Dashboard" }
func (smtpConfig) GetSmtpHost() string     { return "smtp.example.com" }
func (smtpConfig) GetSmtpPort() string     { return "587" }
func (smtpConfig) GetSmtpAccount() string  { return "mailer" }
func (smtpConfig) GetSmtpPassword() string { return "pw" }
func (smtpConfig) GetSmtpSender() string   { return "no-reply@example.com" }

func TestSMTPSenderSendOTP(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := NewSMTPSender(smtpConfig{}, 10*time.Minute)
	sender.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, sender.SendOTP(context.Background(), "a@x.com", "123456"))
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, "no-reply@example.com", gotFrom)
	require.Equal(t, []string{"a@x.com"}, gotTo)
	require.Contains(t, string(gotMsg), "Subject: Your Dashboard sign-in code")
	require.Contains(t, string(gotMsg), "123456")
	require.Contains(t, string(gotMsg), "10 minutes")
	require.Contains(t, string(gotMsg), "multipart/alternative")
}

func TestSMTPSenderInvitation(t *testing.T) {
	var gotMsg []byte
	sender := NewSMTPSender(smtpConfig{}, 10*time.Minute)
	sender.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	require.NoError(t, sender.SendInvitation(context.Background(), "b@x.com", "Acme", "owner@x.com", "https://app/invite/tok"))
	require.Contains(t, string(gotMsg), "owner@x.com invited you to join Acme")
	require.Contains(t, string(gotMsg), "https://app/invite/tok")
}

func TestSMTPSenderHonoursCancellation(t *testing.T) {
	sender := NewSMTPSender(smtpConfig{}, time.Minute)
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("should not send")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sender.SendOTP(ctx, "a@x.com", "1"), context.Canceled)
}

func TestLogSenderRemembersCodes(t *testing.T) {
	sender := NewLogSender()
	require.NoError(t, sender.SendOTP(context.Background(), "a@x.com", "111111"))
	require.NoError(t, sender.SendOTP(context.Background(), "a@x.com", "222222"))
	code, ok := sender.LastCode("a@x.com")
	require.True(t, ok)
	require.Equal(t, "222222", code)
	require.Equal(t, 1, sender.SentCount())
}
