package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
)

func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.orchestrator.StartOAuth(r.Context(), auth.OAuthOptions{
			Provider:    r.PathValue("provider"),
			RedirectURI: s.config.GetBaseURL() + RouteSSOCallback,
		})
		cookies.Apply(w, result.Cookies())
		http.Redirect(w, r, destinationFor(result), http.StatusFound)
	}
}

// SSOCallbackHandler completes a social sign-in. The browser arrives here from the
// identity provider, so every outcome is a redirect rather than JSON.
func (s *Server) SSOCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callback := auth.OAuthCallback{
			Code:             r.FormValue("code"),
			State:            r.FormValue("state"),
			Error:            r.FormValue("error"),
			ErrorDescription: r.FormValue("error_description"),
		}
		lastUsed, _ := cookies.ReadLastUsedOrg(r)
		result := s.orchestrator.CompleteOAuth(r.Context(), callback, lastUsed)
		cookies.Apply(w, result.Cookies())
		http.Redirect(w, r, destinationFor(result), http.StatusFound)
	}
}

func destinationFor(result auth.Result) string {
	switch res := result.(type) {
	case auth.Navigation:
		if res.RedirectTo != "" {
			return res.RedirectTo
		}
	case auth.PendingOrgSelection:
		return PageOrgSelection
	case auth.PendingEmailVerification:
		return PageVerifyEmail
	case auth.AuthError:
		return PageSignIn + "?" + url.Values{"error": {string(res.Code)}}.Encode()
	}
	return PageSignIn
}
