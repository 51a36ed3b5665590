package credentials

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/teco-project/teco-core/tcerr"
)

// Chain tries an ordered list of providers and remembers the first one that
// succeeds; that provider serves all later calls for the lifetime of the
// chain. A noProvider failure moves resolution to the next candidate; any
// other failure aborts the walk and surfaces immediately. Concurrent first
// calls share a single resolution.
type Chain struct {
	providers []Provider
	logger    *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	chosen Provider
	down   atomic.Bool
}

// NewChain builds a Chain over the given providers, tried in order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: slog.Default()}
}

// WithLogger sets the logger used to record which provider was chosen.
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	c.logger = logger
	return c
}

// GetCredential implements Provider.
func (c *Chain) GetCredential(ctx context.Context) (Credential, error) {
	if c.down.Load() {
		return nil, tcerr.AlreadyShutdown("credential provider chain")
	}

	c.mu.Lock()
	chosen := c.chosen
	c.mu.Unlock()
	if chosen != nil {
		return chosen.GetCredential(ctx)
	}

	// First call: walk the chain once, even under concurrency.
	ch := c.group.DoChan("resolve", func() (any, error) {
		return c.resolve(context.WithoutCancel(ctx))
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

// resolve walks the providers and records the winner.
func (c *Chain) resolve(ctx context.Context) (Credential, error) {
	var lastErr error
	for _, p := range c.providers {
		cred, err := p.GetCredential(ctx)
		if err == nil {
			c.mu.Lock()
			c.chosen = p
			c.mu.Unlock()
			c.logger.Debug("credential provider selected",
				"tc-credential-provider", providerName(p))
			return cred, nil
		}
		if !tcerr.IsNoProvider(err) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = tcerr.NoProvider("empty credential provider chain")
	}
	return nil, lastErr
}

// Shutdown implements Provider. All chained providers are shut down.
func (c *Chain) Shutdown() {
	if !c.down.CompareAndSwap(false, true) {
		return
	}
	for _, p := range c.providers {
		p.Shutdown()
	}
}

// providerName returns a stable name for logging.
func providerName(p Provider) string {
	switch p.(type) {
	case *StaticProvider:
		return "static"
	case *EnvProvider:
		return "environment"
	case *FileProvider:
		return "profile-file"
	case *Chain:
		return "chain"
	case *TemporaryProvider:
		return "temporary"
	case NullProvider, *NullProvider:
		return "null"
	}
	return "custom"
}
