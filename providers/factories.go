package providers

import (
	"context"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/jrsteele09/dashboard-auth/notify"
	"github.com/jrsteele09/dashboard-auth/providers/embedded"
	"github.com/jrsteele09/dashboard-auth/providers/local"
	"github.com/jrsteele09/dashboard-auth/providers/remote"
	"github.com/pkg/errors"
)

// CallbackPath is where identity providers send the browser after social sign-in.
const CallbackPath = "/auth/sso-callback"

// EmbeddedDeps supplies the stores and mail delivery only the embedded backend needs.
// Repos is called lazily so other backends never open those connections.
type EmbeddedDeps struct {
	Repos  func(ctx context.Context) (embedded.Repos, error)
	Sender notify.Sender
}

// FromConfig registers every backend and selects the one named by AUTH_PROVIDER.
func FromConfig(cfg config.Config, deps EmbeddedDeps) *Registry {
	return NewRegistry(cfg.GetAuthProvider(), map[string]Factory{
		config.ProviderRemote: func(ctx context.Context) (auth.Provider, error) {
			return remote.New(ctx, remote.ConfigFrom(cfg))
		},
		config.ProviderEmbedded: func(ctx context.Context) (auth.Provider, error) {
			return newEmbedded(ctx, cfg, deps)
		},
		config.ProviderLocal: func(context.Context) (auth.Provider, error) {
			return local.New(local.ConfigFrom(cfg))
		},
	})
}

func newEmbedded(ctx context.Context, cfg config.Config, deps EmbeddedDeps) (auth.Provider, error) {
	repos := embedded.NewInMemoryRepos()
	if deps.Repos != nil {
		var err error
		if repos, err = deps.Repos(ctx); err != nil {
			return nil, errors.Wrap(err, "open embedded stores")
		}
	}
	sender := deps.Sender
	if sender == nil {
		sender = notify.NewLogSender()
	}

	opts := make([]embedded.Option, 0, len(cfg.GetOAuthProviders()))
	for _, idp := range cfg.GetOAuthProviders() {
		exchanger, err := embedded.NewOIDCExchanger(ctx, idp, cfg.GetBaseURL()+CallbackPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, embedded.WithIdentityProvider(idp.Name, exchanger))
	}
	return embedded.New(repos, sender, embedded.SettingsFrom(cfg), opts...)
}
