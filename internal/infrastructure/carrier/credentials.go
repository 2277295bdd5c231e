package carrier

import (
	"context"
	"sync"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/cache"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// LoginFunc performs a carrier login and returns the bearer token.
type LoginFunc func(ctx context.Context) (string, error)

type credentialSource struct {
	login        LoginFunc
	refreshEvery time.Duration
}

// CredentialCache holds one bearer token per carrier for the whole process.
// Cold-cache logins are single-flight per carrier; a background loop renews
// each token on its own interval so the hot path rarely logs in.
type CredentialCache struct {
	store   cache.CacheService
	group   singleflight.Group
	mu      sync.RWMutex
	sources map[domain.CarrierKind]credentialSource
	skew    time.Duration
	now     func() time.Time
	// loginTimeout bounds a login; it runs detached from the caller that
	// started the flight.
	loginTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCredentialCache creates an empty cache. skew is subtracted from a
// token's exp claim so it is renewed before the carrier rejects it.
func NewCredentialCache(store cache.CacheService, skew time.Duration) *CredentialCache {
	return &CredentialCache{
		store:   store,
		sources: make(map[domain.CarrierKind]credentialSource),
		skew:    skew,
		now:     time.Now,

		loginTimeout: 30 * time.Second,
	}
}

// Register sets the login function and proactive refresh interval for a carrier.
func (c *CredentialCache) Register(kind domain.CarrierKind, login LoginFunc, refreshEvery time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[kind] = credentialSource{login: login, refreshEvery: refreshEvery}
}

func credentialKey(kind domain.CarrierKind) string { return "carrier_token:" + string(kind) }

// Get returns the cached token or logs in once on behalf of all concurrent callers.
func (c *CredentialCache) Get(ctx context.Context, kind domain.CarrierKind) (string, error) {
	if v, ok := c.store.Get(credentialKey(kind)); ok {
		if token, ok := v.(string); ok && token != "" {
			return token, nil
		}
	}

	return c.flight(ctx, kind, func(lctx context.Context) (string, error) {
		// another flight may have filled the cache while we queued
		if v, ok := c.store.Get(credentialKey(kind)); ok {
			if token, ok := v.(string); ok && token != "" {
				return token, nil
			}
		}
		return c.login(lctx, kind)
	})
}

// Refresh logs in unconditionally and replaces the cached token.
func (c *CredentialCache) Refresh(ctx context.Context, kind domain.CarrierKind) error {
	_, err := c.flight(ctx, kind, func(lctx context.Context) (string, error) {
		return c.login(lctx, kind)
	})
	return err
}

// flight runs fn once per carrier for all concurrent callers. fn gets a
// context detached from ctx, so one caller giving up does not fail the
// login for the rest; that caller just stops waiting.
func (c *CredentialCache) flight(ctx context.Context, kind domain.CarrierKind, fn func(context.Context) (string, error)) (string, error) {
	ch := c.group.DoChan(credentialKey(kind), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loginTimeout)
		defer cancel()
		return fn(lctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token; the next Get logs in again.
func (c *CredentialCache) Invalidate(kind domain.CarrierKind) {
	c.store.Delete(credentialKey(kind))
}

func (c *CredentialCache) login(ctx context.Context, kind domain.CarrierKind) (string, error) {
	c.mu.RLock()
	src, ok := c.sources[kind]
	c.mu.RUnlock()
	if !ok || src.login == nil {
		return "", domain.NewConfigurationError(kind, "no login configured")
	}

	token, err := src.login(ctx)
	if err != nil {
		metrics.CredentialRefreshTotal.WithLabelValues(string(kind), "error").Inc()
		return "", err
	}
	if token == "" {
		metrics.CredentialRefreshTotal.WithLabelValues(string(kind), "error").Inc()
		return "", &domain.CarrierError{Kind: domain.CarrierErrAuth, Carrier: kind, Message: "login returned empty token"}
	}
	metrics.CredentialRefreshTotal.WithLabelValues(string(kind), "ok").Inc()

	c.store.Set(credentialKey(kind), token, c.ttl(token, src.refreshEvery))
	return token, nil
}

// ttl is the shorter of the configured refresh interval and the token's own
// remaining lifetime (minus skew) when it is a JWT with an exp claim.
func (c *CredentialCache) ttl(token string, refreshEvery time.Duration) time.Duration {
	ttl := refreshEvery
	if exp, ok := tokenExpiry(token); ok {
		remaining := exp.Sub(c.now()) - c.skew
		if remaining <= 0 {
			// already stale: cache briefly so a burst does not hammer login
			remaining = time.Second
		}
		if ttl <= 0 || remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return ttl
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Start launches one proactive refresh loop per registered carrier.
func (c *CredentialCache) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for kind, src := range c.sources {
		if src.refreshEvery <= 0 {
			continue
		}
		c.wg.Add(1)
		go c.refreshLoop(kind, src.refreshEvery)
	}
}

func (c *CredentialCache) refreshLoop(kind domain.CarrierKind, every time.Duration) {
	defer c.wg.Done()
	log := logger.WithComponent("credential_cache")

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Refresh(c.ctx, kind); err != nil {
				log.Error().Err(err).Str("carrier", string(kind)).Msg("proactive credential refresh failed")
				continue
			}
			log.Info().Str("carrier", string(kind)).Msg("carrier credential refreshed")
		case <-c.ctx.Done():
			return
		}
	}
}

// Shutdown stops the refresh loops and waits for them to exit.
func (c *CredentialCache) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}
