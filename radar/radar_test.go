package radar_test

import (
	"testing"

	"github.com/jrsteele09/dashboard-auth/radar"
	"github.com/stretchr/testify/require"
)

func TestAssess(t *testing.T) {
	gate := radar.NewGate(radar.WithChallengeIPs("203.0.113.9"))

	tests := []struct {
		name    string
		signals radar.Signals
		want    radar.Decision
	}{
		{"no metadata", radar.Signals{}, radar.Allow},
		{"email only", radar.Signals{Email: "a@x.com"}, radar.Allow},
		{"browser", radar.Signals{Email: "a@x.com", IPAddress: "198.51.100.1", UserAgent: "Mozilla/5.0 (Macintosh)"}, radar.Allow},
		{"python requests", radar.Signals{Email: "a@x.com", UserAgent: "python-requests/2.31.0"}, radar.Block},
		{"agent match is case insensitive", radar.Signals{UserAgent: "Mozilla/5.0 HeadlessChrome/120"}, radar.Block},
		{"curl without email", radar.Signals{UserAgent: "curl/8.4.0"}, radar.Block},
		{"disposable domain", radar.Signals{Email: "bot@Mailinator.com"}, radar.Challenge},
		{"ip literal domain", radar.Signals{Email: "x@[127.0.0.1]"}, radar.Challenge},
		{"flagged ip", radar.Signals{Email: "a@x.com", IPAddress: "203.0.113.9"}, radar.Challenge},
		{"garbage ip is ignored", radar.Signals{Email: "a@x.com", IPAddress: "not-an-ip"}, radar.Allow},
		{"malformed email is ignored", radar.Signals{Email: "no-at-sign"}, radar.Allow},
		{"block wins over challenge", radar.Signals{Email: "bot@mailinator.com", UserAgent: "Scrapy/2.11"}, radar.Block},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, gate.Assess(tc.signals).Decision)
		})
	}
}

func TestCustomBlockedAgent(t *testing.T) {
	gate := radar.NewGate(radar.WithBlockedAgents("MyCrawler"))
	require.Equal(t, radar.Block, gate.Assess(radar.Signals{UserAgent: "mycrawler/1.0"}).Decision)
	require.Equal(t, "automated_user_agent", gate.Assess(radar.Signals{UserAgent: "mycrawler/1.0"}).Reason)
}
