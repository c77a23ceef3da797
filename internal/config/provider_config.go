package config

import (
	"os"
	"strings"
)

type Providers struct{}

var _ ProviderConfig = Providers{}

// GetAuthProvider returns the configured backend, defaulting to the local stub in development
// and to the hosted service everywhere else.
func (Providers) GetAuthProvider() string {
	provider := strings.ToLower(os.Getenv("AUTH_PROVIDER"))
	if provider != "" {
		return provider
	}
	if (EnvVars{}).IsDevelopment() {
		return ProviderLocal
	}
	return ProviderRemote
}

func (Providers) GetRemoteAPIURL() string {
	return strings.TrimRight(GetEnv("AUTH_API_URL", "https://api.identity.example.com"), "/")
}

func (Providers) GetRemoteAPIKey() string {
	return GetEnv("AUTH_API_KEY", "")
}

func (Providers) GetRemoteClientID() string {
	return GetEnv("AUTH_CLIENT_ID", "")
}

func (p Providers) GetRemoteIssuer() string {
	return GetEnv("AUTH_ISSUER", p.GetRemoteAPIURL())
}

// GetOAuthProviders reads OAUTH_PROVIDERS (comma separated names) and, for each name,
// OAUTH_<NAME>_ISSUER, OAUTH_<NAME>_CLIENT_ID and OAUTH_<NAME>_CLIENT_SECRET.
func (Providers) GetOAuthProviders() []OAuthProvider {
	names := GetEnv("OAUTH_PROVIDERS", "")
	if names == "" {
		return nil
	}
	var providers []OAuthProvider
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := "OAUTH_" + strings.ToUpper(name) + "_"
		providers = append(providers, OAuthProvider{
			Name:         strings.ToLower(name),
			Issuer:       GetEnv(prefix+"ISSUER", ""),
			ClientID:     GetEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: GetEnv(prefix+"CLIENT_SECRET", ""),
		})
	}
	return providers
}

func (Providers) GetLocalAuthSecret() string {
	return GetEnv("LOCAL_AUTH_SECRET", "local-development-secret-change-me")
}

func (Providers) GetLocalAuthCode() string {
	return GetEnv("LOCAL_AUTH_CODE", "000000")
}
