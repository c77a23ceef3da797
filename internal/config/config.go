package config

import "time"

// Provider variants selectable through AUTH_PROVIDER.
const (
	ProviderRemote   = "remote"
	ProviderEmbedded = "embedded"
	ProviderLocal    = "local"
)

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	SecurityConfig
	CookieConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpSender() string
	GetRedisURL() string
	GetDatabaseURL() string
	GetEnv() string
	IsDevelopment() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// ProviderConfig selects the identity backend and carries its credentials.
type ProviderConfig interface {
	GetAuthProvider() string
	GetRemoteAPIURL() string
	GetRemoteAPIKey() string
	GetRemoteClientID() string
	GetRemoteIssuer() string
	GetOAuthProviders() []OAuthProvider
	GetLocalAuthSecret() string
	GetLocalAuthCode() string
}

// OAuthProvider is one social login provider configured for the embedded backend.
type OAuthProvider struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
}

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetSessionRefreshWindow() time.Duration
	GetPendingSessionTTL() time.Duration
	GetAuthCodeTTL() time.Duration
	GetInvitationTTL() time.Duration
	GetTurnstileSiteKey() string
	GetTurnstileSecretKey() string
	GetPublicPaths() []string
	GetTrustProxyHeaders() bool
}

type CookieConfig interface {
	GetCookiePassword() string
	GetSecureCookies() bool
}

type mainConfig struct {
	EnvVars
	Cors
	Providers
	Security
	Cookies
}

func New() Config {
	return mainConfig{}
}
