package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// LogSender writes messages to the log instead of delivering them. Used in development
// and when no SMTP host is configured. It also remembers the last code per address so
// tests can complete a sign-in.
type LogSender struct {
	mu          sync.Mutex
	codes       map[string]string
	invitations map[string]string
}

func NewLogSender() *LogSender {
	return &LogSender{
		codes:       make(map[string]string),
		invitations: make(map[string]string),
	}
}

func (s *LogSender) SendOTP(_ context.Context, email, code string) error {
	s.mu.Lock()
	s.codes[email] = code
	s.mu.Unlock()
	log.Info().Str("email", email).Str("code", code).Msg("one-time code issued")
	return nil
}

func (s *LogSender) SendInvitation(_ context.Context, email, orgName, inviterEmail, link string) error {
	s.mu.Lock()
	s.invitations[email] = link
	s.mu.Unlock()
	log.Info().Str("email", email).Str("org", orgName).Str("inviter", inviterEmail).Str("link", link).Msg("invitation issued")
	return nil
}

// LastCode returns the most recent code sent to email.
func (s *LogSender) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	return code, ok
}

// LastInvitationLink returns the most recent invitation link sent to email.
func (s *LogSender) LastInvitationLink(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.invitations[email]
	return link, ok
}

// SentCount is the number of codes sent to distinct addresses.
func (s *LogSender) SentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}
