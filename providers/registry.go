// Package providers selects the configured identity backend and holds the single
// process-wide instance of it.
package providers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Factory constructs one backend. It runs at most once per successful Registry.
type Factory func(ctx context.Context) (auth.Provider, error)

// Registry lazily builds the selected backend on first use and returns the same
// instance afterwards. A failed construction is not cached.
type Registry struct {
	selected  string
	factories map[string]Factory

	mu       sync.Mutex
	instance atomic.Pointer[auth.Provider]
}

func NewRegistry(selected string, factories map[string]Factory) *Registry {
	return &Registry{
		selected:  strings.ToLower(selected),
		factories: factories,
	}
}

// Selected is the backend name the registry builds.
func (r *Registry) Selected() string {
	return r.selected
}

func (r *Registry) Get(ctx context.Context) (auth.Provider, error) {
	if p := r.instance.Load(); p != nil {
		return *p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.instance.Load(); p != nil {
		return *p, nil
	}

	factory, ok := r.factories[r.selected]
	if !ok {
		return nil, errors.Errorf("[providers.Get] unknown auth provider %q (known: %s)", r.selected, strings.Join(r.names(), ", "))
	}
	p, err := factory(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[providers.Get] build %s provider", r.selected)
	}
	r.instance.Store(&p)
	log.Info().Str("provider", p.Name()).Msg("auth provider ready")
	return p, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
