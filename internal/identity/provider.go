// Package identity establishes the anonymous identity that namespaces the
// remote todo collection.
package identity

import (
	"context"
	"sync"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// SignInFunc obtains a fresh anonymous identity from the remote service.
type SignInFunc func(ctx context.Context) (model.Identity, error)

// Store persists the identity between sessions.
type Store interface {
	LoadIdentity() (model.Identity, bool)
	SaveIdentity(id model.Identity) error
}

// Provider hands out the current identity and signals when one exists.
type Provider struct {
	store  Store
	signIn SignInFunc

	mu        sync.RWMutex
	current   model.Identity
	ready     chan struct{}
	readyOnce sync.Once
}

// NewProvider creates a provider. signIn may be nil, in which case only a
// persisted identity can ever become current.
func NewProvider(store Store, signIn SignInFunc) *Provider {
	return &Provider{
		store:  store,
		signIn: signIn,
		ready:  make(chan struct{}),
	}
}

// Current returns the identity, or false while none is established.
func (p *Provider) Current() (model.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current.Valid()
}

// Ready is closed once an identity becomes available. It stays open for the
// whole session when sign-in fails.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Establish reuses the persisted identity or signs in anonymously. Failure
// is logged and leaves the identity absent; the returned error is for
// callers that want to report it.
func (p *Provider) Establish(ctx context.Context) error {
	if _, ok := p.Current(); ok {
		return nil
	}

	if id, ok := p.store.LoadIdentity(); ok {
		logger.Debug("Reusing stored identity", logger.F("uid", id.UID))
		p.set(id)
		return nil
	}

	if p.signIn == nil {
		return ErrUnavailable
	}

	id, err := p.signIn(ctx)
	if err != nil {
		logger.Warn("Anonymous sign-in failed, continuing local-only", logger.F("error", err))
		return err
	}
	if !id.Valid() {
		logger.Warn("Anonymous sign-in returned an incomplete identity")
		return ErrUnavailable
	}

	if err := p.store.SaveIdentity(id); err != nil {
		logger.Warn("Failed to persist identity", logger.F("error", err))
	}
	logger.Info("Signed in anonymously", logger.F("uid", id.UID))
	p.set(id)
	return nil
}

// Forget drops the identity from memory and storage. The next Establish
// signs in again.
func (p *Provider) Forget() error {
	p.mu.Lock()
	p.current = model.Identity{}
	p.mu.Unlock()
	return p.store.SaveIdentity(model.Identity{})
}

func (p *Provider) set(id model.Identity) {
	p.mu.Lock()
	p.current = id
	p.mu.Unlock()
	p.readyOnce.Do(func() { close(p.ready) })
}
