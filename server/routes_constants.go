package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Email sign-in flow (JSON)
	RouteSignUp       = "/auth/sign-up"
	RouteSignIn       = "/auth/sign-in"
	RouteVerifyCode   = "/auth/verify-code"
	RouteVerifyEmail  = "/auth/verify-email"
	RouteResendCode   = "/auth/resend-code"
	RouteOrgSelection = "/auth/org-selection"
	RouteSwitchOrg    = "/auth/switch-org"
	RouteSignOut      = "/auth/sign-out"

	// Social sign-in
	RouteOAuthStart  = "/auth/oauth/{provider}"
	RouteSSOCallback = "/auth/sso-callback"

	// Pages the browser lands on between steps. Served by the dashboard front end.
	PageSignIn       = "/auth/sign-in"
	PageOrgSelection = "/auth/sign-in/org-selection"
	PageVerifyEmail  = "/auth/sign-in/verify-email"

	// Gated API
	RouteSession = "/api/session"

	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
