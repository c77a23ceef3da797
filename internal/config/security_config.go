package config

import (
	"strconv"
	"strings"
	"time"
)

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionTTL() time.Duration {
	return 7 * 24 * time.Hour
}

// GetSessionRefreshWindow is how close to expiry a full session must be before it is renewed.
func (Security) GetSessionRefreshWindow() time.Duration {
	return 24 * time.Hour
}

func (Security) GetPendingSessionTTL() time.Duration {
	return 10 * time.Minute
}

func (Security) GetAuthCodeTTL() time.Duration {
	return 10 * time.Minute
}

func (Security) GetInvitationTTL() time.Duration {
	return 7 * 24 * time.Hour
}

func (Security) GetTurnstileSiteKey() string {
	return GetEnv("TURNSTILE_SITE_KEY", "")
}

func (Security) GetTurnstileSecretKey() string {
	return GetEnv("TURNSTILE_SECRET_KEY", "")
}

// GetTrustProxyHeaders reads TRUST_PROXY_HEADERS. Only enable it behind a proxy that
// overwrites X-Forwarded-For and X-Real-IP; otherwise clients choose their own address.
func (Security) GetTrustProxyHeaders() bool {
	trust, err := strconv.ParseBool(GetEnv("TRUST_PROXY_HEADERS", "false"))
	return err == nil && trust
}

// defaultPublicPaths are reachable without a session. A trailing "/*" matches the prefix.
var defaultPublicPaths = []string{
	"/",
	"/auth/*",
	"/healthz",
	"/metrics",
	"/pricing",
	"/blog/*",
	"/glossary/*",
	"/static/*",
	"/favicon.ico",
}

// GetPublicPaths reads AUTH_PUBLIC_PATHS (comma separated), falling back to the defaults.
func (Security) GetPublicPaths() []string {
	raw := GetEnv("AUTH_PUBLIC_PATHS", "")
	if raw == "" {
		return append([]string(nil), defaultPublicPaths...)
	}
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
