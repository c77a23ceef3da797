package radar

import (
	"net"
	"strings"

	"github.com/rs/zerolog/log"
)

// Decision is the outcome of a risk assessment.
type Decision string

const (
	Allow     Decision = "allow"
	Challenge Decision = "challenge"
	Block     Decision = "block"
)

// Signals is the request metadata available at sign-in. Any field may be empty.
type Signals struct {
	Email     string
	IPAddress string
	UserAgent string
}

// Assessment carries the decision and the rule that produced it.
type Assessment struct {
	Decision Decision
	Reason   string
}

var defaultBlockedAgents = []string{
	"python-requests",
	"python-urllib",
	"curl/",
	"wget/",
	"go-http-client",
	"scrapy",
	"headlesschrome",
	"phantomjs",
	"selenium",
	"puppeteer",
	"playwright",
}

var defaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"yopmail.com",
	"trashmail.com",
	"sharklasers.com",
	"throwawaymail.com",
	"getnada.com",
}

// Gate assesses sign-in attempts. It blocks known automation user agents, asks for a
// human check on throwaway domains and bare-IP hosts, and allows everything else.
type Gate struct {
	blockedAgents     []string
	disposableDomains map[string]struct{}
	challengeIPs      map[string]struct{}
}

type Option func(*Gate)

// WithBlockedAgents adds user-agent substrings (case-insensitive) that are always blocked.
func WithBlockedAgents(agents ...string) Option {
	return func(g *Gate) {
		for _, a := range agents {
			g.blockedAgents = append(g.blockedAgents, strings.ToLower(a))
		}
	}
}

func WithDisposableDomains(domains ...string) Option {
	return func(g *Gate) {
		for _, d := range domains {
			g.disposableDomains[strings.ToLower(d)] = struct{}{}
		}
	}
}

// WithChallengeIPs lists addresses that must always solve a challenge.
func WithChallengeIPs(ips ...string) Option {
	return func(g *Gate) {
		for _, ip := range ips {
			g.challengeIPs[ip] = struct{}{}
		}
	}
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{
		blockedAgents:     append([]string(nil), defaultBlockedAgents...),
		disposableDomains: make(map[string]struct{}, len(defaultDisposableDomains)),
		challengeIPs:      make(map[string]struct{}),
	}
	for _, d := range defaultDisposableDomains {
		g.disposableDomains[d] = struct{}{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Assess never fails. Anything it cannot interpret is allowed.
func (g *Gate) Assess(s Signals) (a Assessment) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("radar assessment failed, allowing")
			a = Assessment{Decision: Allow, Reason: "assessment_failed"}
		}
	}()

	if ua := strings.ToLower(strings.TrimSpace(s.UserAgent)); ua != "" {
		for _, agent := range g.blockedAgents {
			if strings.Contains(ua, agent) {
				return Assessment{Decision: Block, Reason: "automated_user_agent"}
			}
		}
	}

	if ip := net.ParseIP(strings.TrimSpace(s.IPAddress)); ip != nil {
		if _, ok := g.challengeIPs[ip.String()]; ok {
			return Assessment{Decision: Challenge, Reason: "flagged_ip"}
		}
	}

	if domain := emailDomain(s.Email); domain != "" {
		if _, ok := g.disposableDomains[domain]; ok {
			return Assessment{Decision: Challenge, Reason: "disposable_email"}
		}
		if net.ParseIP(strings.Trim(domain, "[]")) != nil {
			return Assessment{Decision: Challenge, Reason: "ip_literal_email"}
		}
	}

	return Assessment{Decision: Allow}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
