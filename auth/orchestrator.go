package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/dashboard-auth/cookies"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/radar"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/rs/zerolog/log"
)

// Destinations the orchestrator navigates to.
const (
	DestinationNewTenant = "/new"
	DestinationDashboard = "/apis"
	DestinationSignIn    = "/auth/sign-in"
)

const turnstileAction = "email_auth"

// RiskAssessor decides whether an email sign-in may proceed.
type RiskAssessor interface {
	Assess(signals radar.Signals) radar.Assessment
}

// Orchestrator drives the multi-step sign-in flows against one Provider and turns every
// outcome into exactly one Result. It keeps no state between calls; everything that
// must survive a step travels in the cookies of the returned Result.
type Orchestrator struct {
	provider         Provider
	radar            RiskAssessor
	transport        *cookies.Transport
	metrics          *metrics.Metrics
	turnstileSiteKey string
	nowTime          func() time.Time
}

type OrchestratorOption func(*Orchestrator)

func WithRadar(r RiskAssessor) OrchestratorOption {
	return func(o *Orchestrator) {
		o.radar = r
	}
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTurnstileSiteKey(key string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.turnstileSiteKey = key
	}
}

func WithNowTime(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.nowTime = now
	}
}

func NewOrchestrator(provider Provider, transport *cookies.Transport, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		radar:     radar.NewGate(),
		transport: transport,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Provider() Provider {
	return o.provider
}

func (o *Orchestrator) SignUp(ctx context.Context, data SignUpData, meta RequestMeta) Result {
	data = NormalizeSignUp(data)
	if err := ValidateSignUp(data); err != nil {
		return o.finish(o.fail(err))
	}
	if gated := o.screen(data.Email, meta); gated != nil {
		return o.finish(gated)
	}
	if _, err := o.provider.SignUpViaEmail(ctx, data, meta); err != nil {
		return o.finish(o.emailAuthFailure(data.Email, err))
	}
	return o.finish(StateChange{Next: StateCodeSent})
}

func (o *Orchestrator) SignIn(ctx context.Context, email string, meta RequestMeta) Result {
	email = users.NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return o.finish(o.fail(err))
	}
	if gated := o.screen(email, meta); gated != nil {
		return o.finish(gated)
	}
	if _, err := o.provider.SignInViaEmail(ctx, email, meta); err != nil {
		return o.finish(o.emailAuthFailure(email, err))
	}
	return o.finish(StateChange{Next: StateCodeSent})
}

// ResendCode sends a fresh code. It never touches existing sessions.
func (o *Orchestrator) ResendCode(ctx context.Context, email string) Result {
	email = users.NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return o.finish(o.fail(err))
	}
	if _, err := o.provider.ResendAuthCode(ctx, email); err != nil {
		return o.finish(o.fail(err))
	}
	return o.finish(StateChange{Next: StateCodeSent})
}

// VerifyCode completes an email sign-in. A supplied invitation is accepted on a best
// effort basis: failing to accept it never fails the sign-in.
func (o *Orchestrator) VerifyCode(ctx context.Context, email, code, invitationToken, lastUsedOrg string) Result {
	email = users.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return o.finish(o.fail(autherrors.New(autherrors.MissingRequiredFields, "email and code are required")))
	}
	authn, err := o.provider.VerifyAuthCode(ctx, email, code, invitationToken)
	if err != nil {
		return o.finish(o.fail(err))
	}
	if invitationToken != "" {
		authn = o.acceptInvitation(ctx, authn, invitationToken)
	}
	return o.finish(o.branch(ctx, authn, lastUsedOrg, o.transport))
}

func (o *Orchestrator) VerifyEmail(ctx context.Context, code, pendingToken, lastUsedOrg string) Result {
	if pendingToken == "" {
		return o.finish(o.pendingExpired(autherrors.New(autherrors.PendingSessionExpired, "no pending session")))
	}
	if strings.TrimSpace(code) == "" {
		return o.finish(o.fail(autherrors.New(autherrors.MissingRequiredFields, "code is required")))
	}
	authn, err := o.provider.VerifyEmail(ctx, strings.TrimSpace(code), pendingToken)
	if err != nil {
		return o.finish(o.pendingExpired(err))
	}
	return o.finish(o.branch(ctx, authn, lastUsedOrg, o.transport))
}

func (o *Orchestrator) StartOAuth(ctx context.Context, options OAuthOptions) Result {
	if options.Provider == "" {
		return o.finish(o.fail(autherrors.New(autherrors.MissingRequiredFields, "provider is required")))
	}
	target, err := o.provider.SignInViaOAuth(ctx, options)
	if err != nil {
		return o.finish(o.fail(err))
	}
	return o.finish(Navigation{Next: StateOAuthPendingCallback, RedirectTo: target})
}

// CompleteOAuth applies the same branching as VerifyCode. Cookies are SameSite=Lax
// because the callback arrives as a cross-site navigation.
func (o *Orchestrator) CompleteOAuth(ctx context.Context, callback OAuthCallback, lastUsedOrg string) Result {
	authn, err := o.provider.CompleteOAuthSignIn(ctx, callback)
	if err != nil {
		return o.finish(o.fail(err))
	}
	return o.finish(o.branch(ctx, authn, lastUsedOrg, o.transport.Lax()))
}

// CompleteOrgSelection trades a pending session for a full one scoped to orgID.
func (o *Orchestrator) CompleteOrgSelection(ctx context.Context, orgID, pendingToken string) Result {
	if pendingToken == "" {
		return o.finish(o.pendingExpired(autherrors.New(autherrors.PendingSessionExpired, "no pending session")))
	}
	if orgID == "" {
		return o.finish(o.fail(autherrors.New(autherrors.MissingRequiredFields, "organization is required")))
	}
	session, err := o.provider.ExchangePendingSession(ctx, pendingToken, orgID)
	if err != nil {
		return o.finish(o.pendingExpired(err))
	}
	if session.Token == "" {
		session.Token = pendingToken
	}
	return o.finish(o.authenticated(session, o.transport))
}

// PendingStep restates the step a pending session is waiting on, for callers that reach
// it by navigation and so never saw the Result that issued the pending cookie.
func (o *Orchestrator) PendingStep(ctx context.Context, pendingToken, lastUsedOrg string) Result {
	if pendingToken == "" {
		return o.finish(o.pendingExpired(autherrors.New(autherrors.PendingSessionExpired, "no pending session")))
	}
	authn, err := o.provider.GetPendingAuthentication(ctx, pendingToken)
	if err != nil {
		return o.finish(o.pendingExpired(err))
	}
	if !authn.User.EmailVerified {
		return o.finish(PendingEmailVerification{User: authn.User})
	}
	return o.finish(PendingOrgSelection{User: authn.User, Organizations: orderByLastUsed(authn.Organizations, lastUsedOrg)})
}

func (o *Orchestrator) SwitchOrg(ctx context.Context, sessionToken, orgID string) Result {
	if sessionToken == "" {
		return o.finish(o.fail(autherrors.New(autherrors.SessionExpired, "no session")))
	}
	if orgID == "" {
		return o.finish(o.fail(autherrors.New(autherrors.MissingRequiredFields, "organization is required")))
	}
	refreshed, err := o.provider.SwitchOrg(ctx, sessionToken, orgID)
	if err != nil {
		return o.finish(o.fail(err))
	}
	session := refreshed.Session
	session.Token = refreshed.NewToken
	session.ExpiresAt = refreshed.ExpiresAt
	return o.finish(o.authenticated(session, o.transport))
}

// SignOut always clears local cookies, even when the backend call fails.
func (o *Orchestrator) SignOut(ctx context.Context, sessionToken string) Result {
	redirect := DestinationSignIn
	if sessionToken != "" {
		if target, err := o.provider.GetSignOutURL(ctx, sessionToken); err != nil {
			log.Warn().Err(err).Str("provider", o.provider.Name()).Msg("sign-out url unavailable")
		} else if target != "" {
			redirect = target
		}
		if err := o.provider.SignOut(ctx, sessionToken); err != nil {
			log.Warn().Err(err).Str("provider", o.provider.Name()).Msg("backend sign-out failed")
		}
	}
	return o.finish(Navigation{
		Next:       StateUnauthenticated,
		RedirectTo: redirect,
		SetCookies: []*http.Cookie{
			o.transport.Delete(cookies.SessionName),
			o.transport.Delete(cookies.PendingName),
		},
	})
}

// branch routes a proven identity: unverified email first, then by organization count.
func (o *Orchestrator) branch(ctx context.Context, authn Authentication, lastUsedOrg string, transport *cookies.Transport) Result {
	if !authn.User.EmailVerified {
		if authn.Pending == nil {
			return o.fail(autherrors.New(autherrors.EmailVerificationRequired, "backend issued no pending session"))
		}
		return PendingEmailVerification{
			User:       authn.User,
			SetCookies: []*http.Cookie{transport.Pending(authn.Pending.Token)},
		}
	}

	orgs := authn.Organizations
	if len(orgs) > 1 {
		if authn.Pending != nil {
			return PendingOrgSelection{
				User:          authn.User,
				Organizations: orderByLastUsed(orgs, lastUsedOrg),
				SetCookies:    []*http.Cookie{transport.Pending(authn.Pending.Token)},
			}
		}
		if authn.Session != nil {
			// The backend already picked an organization and gave no pending session to select with.
			log.Debug().Str("user", authn.User.ID).Int("orgs", len(orgs)).Msg("keeping backend-selected organization")
			return o.authenticated(*authn.Session, transport)
		}
		return o.fail(autherrors.New(autherrors.OrganizationSelectionRequired, "backend issued no pending session"))
	}

	orgID := ""
	if len(orgs) == 1 {
		orgID = orgs[0].ID
	}

	if authn.Session != nil {
		session := *authn.Session
		if orgID != "" && session.OrgID != orgID {
			refreshed, err := o.provider.SwitchOrg(ctx, session.Token, orgID)
			if err != nil {
				return o.fail(err)
			}
			session = refreshed.Session
			session.Token = refreshed.NewToken
			session.ExpiresAt = refreshed.ExpiresAt
		}
		return o.authenticated(session, transport)
	}

	if authn.Pending == nil {
		return o.fail(autherrors.New(autherrors.Unknown, "backend issued neither session nor pending session"))
	}
	session, err := o.provider.ExchangePendingSession(ctx, authn.Pending.Token, orgID)
	if err != nil {
		return o.pendingExpired(err)
	}
	if session.Token == "" {
		session.Token = authn.Pending.Token
	}
	return o.authenticated(session, transport)
}

// authenticated sets the full session and clears any pending one.
func (o *Orchestrator) authenticated(session SessionToken, transport *cookies.Transport) Result {
	destination := DestinationNewTenant
	set := []*http.Cookie{
		transport.Session(session.Token, session.ExpiresAt),
		transport.Delete(cookies.PendingName),
	}
	if session.OrgID != "" {
		destination = DestinationDashboard
		set = append(set, transport.LastUsedOrg(session.OrgID))
	}
	return Navigation{Next: StateAuthenticated, RedirectTo: destination, SetCookies: set}
}

func (o *Orchestrator) acceptInvitation(ctx context.Context, authn Authentication, token string) Authentication {
	logger := log.With().Str("user", authn.User.ID).Str("provider", o.provider.Name()).Logger()

	inv, err := o.provider.GetInvitation(ctx, token)
	if err != nil {
		o.metrics.InvitationAcceptFailure()
		logger.Warn().Err(err).Str("code", string(autherrors.CodeOf(err))).Msg("invitation lookup failed, continuing sign-in")
		return authn
	}
	if inv == nil {
		o.metrics.InvitationAcceptFailure()
		logger.Warn().Msg("no invitation for token, continuing sign-in")
		return authn
	}
	logger = logger.With().Str("invitation", inv.ID).Logger()
	if users.NormalizeEmail(inv.Email) != users.NormalizeEmail(authn.User.Email) {
		o.metrics.InvitationAcceptFailure()
		logger.Warn().Msg("invitation addressed to another email, continuing sign-in")
		return authn
	}

	if inv.EffectiveState(o.nowTime()) != invitations.StateAccepted {
		if _, err := o.provider.AcceptInvitation(ctx, inv.ID); err != nil {
			o.metrics.InvitationAcceptFailure()
			logger.Warn().Err(err).Str("code", string(autherrors.CodeOf(err))).Msg("invitation acceptance failed, continuing sign-in")
			return authn
		}
	}

	for _, org := range authn.Organizations {
		if org.ID == inv.OrganizationID {
			return authn
		}
	}
	org, err := o.provider.GetOrg(ctx, inv.OrganizationID, authn.User.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("accepted invitation organization unavailable")
		return authn
	}
	authn.Organizations = append(append([]tenants.Organization(nil), authn.Organizations...), *org)
	return authn
}

// screen consults the risk gate. It returns nil when the request may proceed.
func (o *Orchestrator) screen(email string, meta RequestMeta) Result {
	if meta.BypassRadar || o.radar == nil {
		return nil
	}
	assessment := o.radar.Assess(radar.Signals{Email: email, IPAddress: meta.IPAddress, UserAgent: meta.UserAgent})
	o.metrics.RadarDecision(string(assessment.Decision))
	switch assessment.Decision {
	case radar.Block:
		log.Info().Str("reason", assessment.Reason).Msg("email sign-in blocked")
		return o.fail(autherrors.New(autherrors.RadarBlocked, assessment.Reason))
	case radar.Challenge:
		return o.turnstile(email, assessment.Reason)
	default:
		return nil
	}
}

func (o *Orchestrator) turnstile(email, reason string) Result {
	return PendingTurnstile{
		SiteKey: o.turnstileSiteKey,
		Action:  turnstileAction,
		Email:   email,
		Reason:  reason,
	}
}

// emailAuthFailure turns a backend-side challenge request into the same pending step as
// a local one.
func (o *Orchestrator) emailAuthFailure(email string, err error) Result {
	if autherrors.HasCode(err, autherrors.RadarChallengeRequired) {
		return o.turnstile(email, "backend_challenge")
	}
	return o.fail(err)
}

// pendingExpired fails like fail, but also drops the pending cookie when it is the
// cause of the failure.
func (o *Orchestrator) pendingExpired(err error) Result {
	if autherrors.HasCode(err, autherrors.PendingSessionExpired) {
		return o.fail(err, o.transport.Delete(cookies.PendingName))
	}
	return o.fail(err)
}

func (o *Orchestrator) fail(err error, set ...*http.Cookie) Result {
	code := autherrors.CodeOf(err)
	if code == autherrors.Unknown || code == autherrors.NetworkError {
		log.Err(err).Str("provider", o.provider.Name()).Msg("sign-in step failed")
	}
	return errorResult(err, set...)
}

func (o *Orchestrator) finish(r Result) Result {
	o.metrics.AuthResult(string(r.Kind()))
	return r
}

// orderByLastUsed moves the last-used organization to the front, keeping the rest in order.
func orderByLastUsed(orgs []tenants.Organization, lastUsed string) []tenants.Organization {
	ordered := make([]tenants.Organization, 0, len(orgs))
	for _, org := range orgs {
		if org.ID == lastUsed {
			ordered = append(ordered, org)
		}
	}
	for _, org := range orgs {
		if org.ID != lastUsed {
			ordered = append(ordered, org)
		}
	}
	return ordered
}
