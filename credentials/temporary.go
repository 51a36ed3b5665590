package credentials

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teco-project/teco-core/internal/metrics"
	"github.com/teco-project/teco-core/tcerr"
)

// DefaultReservedLifetime is how long before expiration a cached credential
// is considered stale and refreshed.
const DefaultReservedLifetime = 180 * time.Second

// TemporaryProvider wraps another provider with an expiry-aware cache. It
// holds at most one cached credential and at most one in-flight refresh;
// concurrent callers needing a refresh join the same underlying call and
// observe its outcome. A failed refresh does not evict the previously cached
// credential.
type TemporaryProvider struct {
	upstream Provider
	reserved time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	cached Credential
	down   atomic.Bool
}

// TemporaryOption configures a TemporaryProvider.
type TemporaryOption func(*TemporaryProvider)

// WithReservedLifetime overrides the refresh margin before expiration.
func WithReservedLifetime(d time.Duration) TemporaryOption {
	return func(p *TemporaryProvider) { p.reserved = d }
}

// WithTemporaryLogger sets the logger used for refresh events.
func WithTemporaryLogger(logger *slog.Logger) TemporaryOption {
	return func(p *TemporaryProvider) { p.logger = logger }
}

// WithPrewarm starts a background refresh at construction so the first
// caller is likely to find a warm cache. Prewarm failures are discarded.
func WithPrewarm() TemporaryOption {
	return func(p *TemporaryProvider) {
		go func() {
			_, _ = p.GetCredential(context.Background())
		}()
	}
}

// NewTemporaryProvider wraps upstream with the default 180 s reserved
// lifetime.
func NewTemporaryProvider(upstream Provider, opts ...TemporaryOption) *TemporaryProvider {
	p := &TemporaryProvider{
		upstream: upstream,
		reserved: DefaultReservedLifetime,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetCredential implements Provider.
//
// The decision ladder: no cache yet, refresh; cached non-expiring value,
// return it; cached value not within the reserved lifetime of expiry, return
// it; otherwise refresh. The cache mutex is held only around the cached
// slot; the upstream call runs outside the lock.
func (p *TemporaryProvider) GetCredential(ctx context.Context) (Credential, error) {
	if p.down.Load() {
		return nil, tcerr.AlreadyShutdown("temporary credential provider")
	}

	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()

	if cached != nil {
		exp, expiring := cached.(Expiring)
		if !expiring || !exp.IsExpiring(p.reserved) {
			return cached, nil
		}
	}

	// Refresh, joining any in-flight call. The refresh is detached from the
	// caller's deadline: it serves other waiters, so a single caller's
	// cancellation must not abort it.
	ch := p.group.DoChan("refresh", func() (any, error) {
		cred, err := p.upstream.GetCredential(context.WithoutCancel(ctx))
		if err != nil {
			p.logger.Warn("credential refresh failed", "tc-error", err)
			return nil, err
		}
		metrics.CredentialRefreshesTotal.Inc()
		p.mu.Lock()
		p.cached = cred
		p.mu.Unlock()
		return cred, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Credential), nil
	case <-ctx.Done():
		return nil, &tcerr.TransportError{Cause: ctx.Err()}
	}
}

// Shutdown implements Provider. Any in-flight refresh is drained before the
// upstream provider is shut down.
func (p *TemporaryProvider) Shutdown() {
	if !p.down.CompareAndSwap(false, true) {
		return
	}
	// Drain a refresh in flight so the upstream shutdown does not race it.
	ch := p.group.DoChan("refresh", func() (any, error) { return nil, nil })
	<-ch
	p.upstream.Shutdown()
}
