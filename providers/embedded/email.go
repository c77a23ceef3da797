package embedded

import (
	"context"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/jrsteele09/dashboard-auth/verification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (p *Provider) SignUpViaEmail(ctx context.Context, data auth.SignUpData, _ auth.RequestMeta) (auth.EmailAuthResult, error) {
	data = auth.NormalizeSignUp(data)
	if err := auth.ValidateSignUp(data); err != nil {
		return auth.EmailAuthResult{}, err
	}
	user := &users.User{
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	}
	if err := p.repos.Users.Create(ctx, user); err != nil {
		return auth.EmailAuthResult{}, translate(err, "create user")
	}
	log.Info().Str("user", user.ID).Msg("user signed up")
	return p.sendSignInCode(ctx, user)
}

func (p *Provider) SignInViaEmail(ctx context.Context, email string, _ auth.RequestMeta) (auth.EmailAuthResult, error) {
	user, err := p.userByEmail(ctx, email)
	if err != nil {
		return auth.EmailAuthResult{}, err
	}
	return p.sendSignInCode(ctx, user)
}

// ResendAuthCode replaces the outstanding code. Sessions are untouched.
func (p *Provider) ResendAuthCode(ctx context.Context, email string) (auth.EmailAuthResult, error) {
	user, err := p.userByEmail(ctx, email)
	if err != nil {
		return auth.EmailAuthResult{}, err
	}
	return p.sendSignInCode(ctx, user)
}

// VerifyAuthCode proves control of the address, which also verifies it. Invitations are
// accepted by the caller, so invitationToken is not used here.
func (p *Provider) VerifyAuthCode(ctx context.Context, email, code, _ string) (auth.Authentication, error) {
	user, err := p.userByEmail(ctx, email)
	if err != nil {
		return auth.Authentication{}, autherrors.Wrap(err, autherrors.InvalidCode, "code is invalid")
	}
	if err := p.checkCode(ctx, verification.PurposeSignIn, user.Email, code); err != nil {
		return auth.Authentication{}, err
	}
	if !user.EmailVerified {
		if err := p.repos.Users.SetEmailVerified(ctx, user.ID, true); err != nil {
			return auth.Authentication{}, translate(err, "mark email verified")
		}
		user.EmailVerified = true
	}
	return p.authenticate(ctx, user)
}

func (p *Provider) VerifyEmail(ctx context.Context, code, pendingToken string) (auth.Authentication, error) {
	s, err := p.pendingSession(ctx, pendingToken)
	if err != nil {
		return auth.Authentication{}, err
	}
	if err := p.checkCode(ctx, verification.PurposeEmailVerification, s.UserID, code); err != nil {
		return auth.Authentication{}, err
	}
	if err := p.repos.Users.SetEmailVerified(ctx, s.UserID, true); err != nil {
		return auth.Authentication{}, translate(err, "mark email verified")
	}
	user, err := p.repos.Users.GetByID(ctx, s.UserID)
	if err != nil {
		return auth.Authentication{}, translate(err, "load user")
	}
	orgs, err := p.activeOrganizations(ctx, user.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{
		User:          *user,
		Organizations: orgs,
		Pending:       &auth.PendingSession{Token: pendingToken, ExpiresAt: s.ExpiresAt},
	}, nil
}

func (p *Provider) GetPendingAuthentication(ctx context.Context, pendingToken string) (auth.Authentication, error) {
	s, err := p.pendingSession(ctx, pendingToken)
	if err != nil {
		return auth.Authentication{}, err
	}
	user, err := p.repos.Users.GetByID(ctx, s.UserID)
	if err != nil {
		return auth.Authentication{}, translate(err, "load user")
	}
	orgs, err := p.activeOrganizations(ctx, user.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{
		User:          *user,
		Organizations: orgs,
		Pending:       &auth.PendingSession{Token: pendingToken, ExpiresAt: s.ExpiresAt},
	}, nil
}

// authenticate issues a pending session; the organization is settled by the caller.
func (p *Provider) authenticate(ctx context.Context, user *users.User) (auth.Authentication, error) {
	orgs, err := p.activeOrganizations(ctx, user.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	pending, err := p.createPendingSession(ctx, user.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{User: *user, Organizations: orgs, Pending: pending}, nil
}

func (p *Provider) activeOrganizations(ctx context.Context, userID string) ([]tenants.Organization, error) {
	ms, err := p.repos.Memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "list memberships")
	}
	orgs := make([]tenants.Organization, 0, len(ms))
	for _, m := range ms {
		if !m.IsActive() {
			continue
		}
		org, err := p.repos.Tenants.Get(ctx, m.OrganizationID)
		if errors.Is(err, tenants.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, translate(err, "load organization")
		}
		orgs = append(orgs, *org)
	}
	return orgs, nil
}

func (p *Provider) userByEmail(ctx context.Context, email string) (*users.User, error) {
	email = users.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	user, err := p.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, translate(err, "no account for email")
	}
	return user, nil
}

func (p *Provider) sendSignInCode(ctx context.Context, user *users.User) (auth.EmailAuthResult, error) {
	if err := p.issueCode(ctx, verification.PurposeSignIn, user.Email, user); err != nil {
		return auth.EmailAuthResult{}, err
	}
	return auth.EmailAuthResult{UserID: user.ID, Email: user.Email}, nil
}

// issueCode stores a fresh challenge for (purpose, subject) and mails the code to the user.
func (p *Provider) issueCode(ctx context.Context, purpose verification.Purpose, subject string, user *users.User) error {
	now := p.now()
	if !p.limiter.allow(user.Email, now) {
		return autherrors.New(autherrors.RateLimited, "too many codes requested")
	}
	code, err := verification.NewCode()
	if err != nil {
		return translate(err, "generate code")
	}
	hash, err := verification.HashCode(code)
	if err != nil {
		return translate(err, "hash code")
	}
	challenge := &verification.Challenge{
		Purpose:   purpose,
		Subject:   subject,
		UserID:    user.ID,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(p.settings.CodeTTL),
	}
	if err := p.repos.Challenges.Put(ctx, challenge); err != nil {
		return translate(err, "store code")
	}
	if err := p.sender.SendOTP(ctx, user.Email, code); err != nil {
		return autherrors.Wrap(err, autherrors.NetworkError, "deliver code")
	}
	return nil
}

// checkCode consumes the challenge on success. Wrong guesses count against it and the
// challenge is discarded once MaxAttempts is reached.
func (p *Provider) checkCode(ctx context.Context, purpose verification.Purpose, subject, code string) error {
	challenge, err := p.repos.Challenges.Get(ctx, purpose, subject)
	if err != nil {
		return translate(err, "code is invalid")
	}
	if challenge.Expired(p.now()) || challenge.Attempts >= verification.MaxAttempts {
		_ = p.repos.Challenges.Delete(ctx, purpose, subject)
		return autherrors.New(autherrors.InvalidCode, "code expired")
	}
	if !challenge.Matches(code) {
		attempts, err := p.repos.Challenges.IncrementAttempts(ctx, purpose, subject)
		if err == nil && attempts >= verification.MaxAttempts {
			_ = p.repos.Challenges.Delete(ctx, purpose, subject)
		}
		return autherrors.New(autherrors.InvalidCode, "code is invalid")
	}
	if err := p.repos.Challenges.Delete(ctx, purpose, subject); err != nil {
		return translate(err, "consume code")
	}
	return nil
}
