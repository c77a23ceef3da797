package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Email sign-in flow
	s.RegisterRouteFunc("POST "+RouteSignUp, s.SignUpHandler())
	s.RegisterRouteFunc("POST "+RouteSignIn, s.SignInHandler())
	s.RegisterRouteFunc("POST "+RouteVerifyCode, s.VerifyCodeHandler())
	s.RegisterRouteFunc("POST "+RouteVerifyEmail, s.VerifyEmailHandler())
	s.RegisterRouteFunc("POST "+RouteResendCode, s.ResendCodeHandler())
	s.RegisterRouteFunc("POST "+RouteOrgSelection, s.OrgSelectionHandler())
	s.RegisterRouteFunc("POST "+RouteSwitchOrg, s.SwitchOrgHandler())
	s.RegisterRouteFunc("POST "+RouteSignOut, s.SignOutHandler())

	// Pending step lookups for pages reached by redirect
	s.RegisterRouteFunc("GET "+RouteOrgSelection, s.PendingStepHandler())
	s.RegisterRouteFunc("GET "+RouteVerifyEmail, s.PendingStepHandler())

	// Social sign-in
	s.RegisterRouteFunc("GET "+RouteOAuthStart, s.OAuthStartHandler())
	s.RegisterRouteFunc("GET "+RouteSSOCallback, s.SSOCallbackHandler())
	s.RegisterRouteFunc("POST "+RouteSSOCallback, s.SSOCallbackHandler()) // For form_post response mode

	// Requires a session; the gate has already resolved it.
	s.RegisterRouteFunc("GET "+RouteSession, s.SessionHandler())

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metricsHandler)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"provider": s.orchestrator.Provider().Name(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("write json response")
	}
}
