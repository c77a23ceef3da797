package server

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type signUpRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	TurnstileToken string `json:"turnstileToken"`
}

type signInRequest struct {
	Email          string `json:"email"`
	TurnstileToken string `json:"turnstileToken"`
}

type verifyCodeRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	InvitationToken string `json:"invitationToken"`
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

type orgRequest struct {
	OrganizationID string `json:"organizationId"`
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		data := auth.SignUpData{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
		s.writeResult(w, s.orchestrator.SignUp(r.Context(), data, s.requestMeta(r, req.TurnstileToken)))
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s.writeResult(w, s.orchestrator.SignIn(r.Context(), req.Email, s.requestMeta(r, req.TurnstileToken)))
	}
}

func (s *Server) ResendCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s.writeResult(w, s.orchestrator.ResendCode(r.Context(), req.Email))
	}
}

func (s *Server) VerifyCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyCodeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		lastUsed, _ := cookies.ReadLastUsedOrg(r)
		s.writeResult(w, s.orchestrator.VerifyCode(r.Context(), req.Email, req.Code, req.InvitationToken, lastUsed))
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyEmailRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		pending, _ := cookies.ReadPending(r)
		lastUsed, _ := cookies.ReadLastUsedOrg(r)
		s.writeResult(w, s.orchestrator.VerifyEmail(r.Context(), req.Code, pending, lastUsed))
	}
}

func (s *Server) OrgSelectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orgRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		pending, _ := cookies.ReadPending(r)
		s.writeResult(w, s.orchestrator.CompleteOrgSelection(r.Context(), req.OrganizationID, pending))
	}
}

// PendingStepHandler restates the step the pending cookie is waiting on, so pages reached
// by redirect can render the user and candidate organizations.
func (s *Server) PendingStepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, _ := cookies.ReadPending(r)
		lastUsed, _ := cookies.ReadLastUsedOrg(r)
		s.writeResult(w, s.orchestrator.PendingStep(r.Context(), pending, lastUsed))
	}
}

func (s *Server) SwitchOrgHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orgRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		session, _ := cookies.ReadSession(r)
		s.writeResult(w, s.orchestrator.SwitchOrg(r.Context(), session, req.OrganizationID))
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := cookies.ReadSession(r)
		s.writeResult(w, s.orchestrator.SignOut(r.Context(), session))
	}
}

// SessionHandler describes the caller's session and profile.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			s.writeResult(w, auth.AuthError{
				Code:    autherrors.SessionExpired,
				Message: autherrors.UserMessage(autherrors.SessionExpired),
			})
			return
		}
		user, err := s.orchestrator.Provider().GetUser(r.Context(), identity.UserID)
		if err != nil {
			log.Err(err).Str("user_id", identity.UserID).Msg("load session user")
			code := autherrors.CodeOf(err)
			s.writeResult(w, auth.AuthError{Code: code, Message: autherrors.UserMessage(code)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session": identity,
			"user":    user,
		})
	}
}

func (s *Server) writeResult(w http.ResponseWriter, result auth.Result) {
	cookies.Apply(w, result.Cookies())
	status := http.StatusOK
	if e, ok := result.(auth.AuthError); ok {
		status = statusFor(e.Code)
	}
	writeJSON(w, status, result)
}

// requestMeta describes the caller for the risk gate. A challenge token only bypasses the
// gate once the verifier accepts it.
func (s *Server) requestMeta(r *http.Request, challengeToken string) auth.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	meta := auth.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()}
	if challengeToken != "" && s.challenges != nil {
		if err := s.challenges.Verify(r.Context(), challengeToken, ip); err != nil {
			log.Info().Err(err).Str("ip", ip).Msg("challenge not accepted")
		} else {
			meta.BypassRadar = true
		}
	}
	return meta
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, auth.AuthError{
			Code:    autherrors.MissingRequiredFields,
			Message: autherrors.UserMessage(autherrors.MissingRequiredFields),
		})
		return false
	}
	return true
}

func statusFor(code autherrors.Code) int {
	switch code {
	case autherrors.MissingRequiredFields, autherrors.InvalidEmail:
		return http.StatusBadRequest
	case autherrors.InvalidCode, autherrors.SessionExpired, autherrors.PendingSessionExpired:
		return http.StatusUnauthorized
	case autherrors.RadarBlocked:
		return http.StatusForbidden
	case autherrors.AccountNotFound, autherrors.NotFound:
		return http.StatusNotFound
	case autherrors.EmailAlreadyExists, autherrors.OrganizationSelectionRequired,
		autherrors.EmailVerificationRequired, autherrors.RadarChallengeRequired:
		return http.StatusConflict
	case autherrors.RateLimited:
		return http.StatusTooManyRequests
	case autherrors.Unsupported:
		return http.StatusNotImplemented
	case autherrors.NetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
