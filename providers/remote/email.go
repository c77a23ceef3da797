package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
)

type createUserRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type sendCodeRequest struct {
	Email     string `json:"email"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (p *Provider) SignUpViaEmail(ctx context.Context, data auth.SignUpData, meta auth.RequestMeta) (auth.EmailAuthResult, error) {
	data = auth.NormalizeSignUp(data)
	if err := auth.ValidateSignUp(data); err != nil {
		return auth.EmailAuthResult{}, err
	}
	var user apiUser
	err := p.do(ctx, http.MethodPost, "/v1/users", nil, createUserRequest{
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	}, &user)
	if err != nil {
		return auth.EmailAuthResult{}, translate(err, "create user")
	}
	return p.sendCode(ctx, user, meta)
}

func (p *Provider) SignInViaEmail(ctx context.Context, email string, meta auth.RequestMeta) (auth.EmailAuthResult, error) {
	user, err := p.userByEmail(ctx, email)
	if err != nil {
		return auth.EmailAuthResult{}, err
	}
	return p.sendCode(ctx, user, meta)
}

func (p *Provider) ResendAuthCode(ctx context.Context, email string) (auth.EmailAuthResult, error) {
	return p.SignInViaEmail(ctx, email, auth.RequestMeta{})
}

// VerifyAuthCode passes the invitation token through; the service accepts it as part
// of the authentication.
func (p *Provider) VerifyAuthCode(ctx context.Context, email, code, invitationToken string) (auth.Authentication, error) {
	return p.authenticate(ctx, authenticateRequest{
		GrantType:       grantEmailCode,
		Email:           users.NormalizeEmail(email),
		Code:            code,
		InvitationToken: invitationToken,
	})
}

func (p *Provider) VerifyEmail(ctx context.Context, code, pendingToken string) (auth.Authentication, error) {
	step, err := p.openPending(pendingToken)
	if err != nil {
		return auth.Authentication{}, err
	}
	return p.authenticate(ctx, authenticateRequest{
		GrantType:                  grantEmailVerification,
		Code:                       code,
		PendingAuthenticationToken: step.Token,
	})
}

// GetPendingAuthentication answers from the sealed step alone; the service is not asked.
func (p *Provider) GetPendingAuthentication(_ context.Context, pendingToken string) (auth.Authentication, error) {
	step, err := p.openPending(pendingToken)
	if err != nil {
		return auth.Authentication{}, err
	}
	return step.authentication(pendingToken), nil
}

func (p *Provider) userByEmail(ctx context.Context, email string) (apiUser, error) {
	email = users.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return apiUser{}, err
	}
	var found list[apiUser]
	if err := p.do(ctx, http.MethodGet, "/v1/users", url.Values{"email": {email}}, nil, &found); err != nil {
		return apiUser{}, translate(err, "look up user")
	}
	if len(found.Data) == 0 {
		return apiUser{}, autherrors.New(autherrors.AccountNotFound, "no account for email")
	}
	return found.Data[0], nil
}

func (p *Provider) sendCode(ctx context.Context, user apiUser, meta auth.RequestMeta) (auth.EmailAuthResult, error) {
	err := p.do(ctx, http.MethodPost, "/v1/auth/codes", nil, sendCodeRequest{
		Email:     user.Email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}, nil)
	if err != nil {
		return auth.EmailAuthResult{}, translate(err, "send code")
	}
	return auth.EmailAuthResult{UserID: user.ID, Email: user.Email}, nil
}

func (p *Provider) grant(ctx context.Context, req authenticateRequest) (authenticateResponse, error) {
	req.ClientID = p.cfg.ClientID
	req.ClientSecret = p.cfg.APIKey
	var resp authenticateResponse
	err := p.do(ctx, http.MethodPost, "/v1/auth/authenticate", nil, req, &resp)
	return resp, err
}

// authenticate runs a grant and returns either a full session or, when the service
// asks for another step, a pending session sealing the service's pending token.
func (p *Provider) authenticate(ctx context.Context, req authenticateRequest) (auth.Authentication, error) {
	resp, err := p.grant(ctx, req)
	if err != nil {
		if step, ok := p.pendingStep(err); ok {
			return p.sealPending(step)
		}
		return auth.Authentication{}, translate(err, "authenticate")
	}
	session, err := p.sessionFrom(resp)
	if err != nil {
		return auth.Authentication{}, err
	}
	orgs, err := p.activeOrganizations(ctx, resp.User.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{User: resp.User.toUser(), Organizations: orgs, Session: &session}, nil
}

func (p *Provider) pendingStep(err error) (sealedPending, bool) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.PendingAuthenticationToken == "" {
		return sealedPending{}, false
	}
	if apiErr.Code != stepOrgSelection && apiErr.Code != stepEmailVerification {
		return sealedPending{}, false
	}
	return sealedPending{
		Token:         apiErr.PendingAuthenticationToken,
		Step:          apiErr.Code,
		User:          apiErr.User,
		Organizations: apiErr.Organizations,
		ExpiresAt:     p.now().Add(pendingTTL),
	}, true
}
