package config

type Cookies struct{}

var _ CookieConfig = Cookies{}

// GetCookiePassword is the secret used to seal session cookies. It must be at least 32 chars.
func (Cookies) GetCookiePassword() string {
	return GetEnv("AUTH_COOKIE_PASSWORD", "")
}

// GetSecureCookies is false only in development so cookies work over http://localhost.
func (Cookies) GetSecureCookies() bool {
	return !(EnvVars{}).IsDevelopment()
}
