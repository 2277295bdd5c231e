package carrier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shipwise-backend/internal/domain"
	memcache "shipwise-backend/internal/infrastructure/cache"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialCacheSingleFlight(t *testing.T) {
	creds := NewCredentialCache(memcache.NewMemoryCache(time.Hour, time.Hour), time.Minute)

	var logins atomic.Int32
	release := make(chan struct{})
	creds.Register(domain.CarrierFreight, func(ctx context.Context) (string, error) {
		logins.Add(1)
		<-release
		return "tok-1", nil
	}, time.Hour)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := creds.Get(context.Background(), domain.CarrierFreight)
			assert.NoError(t, err)
			tokens[i] = tok
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), logins.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}

	creds.Invalidate(domain.CarrierFreight)
	_, err := creds.Get(context.Background(), domain.CarrierFreight)
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}

func TestCredentialCacheFailures(t *testing.T) {
	creds := NewCredentialCache(memcache.NewMemoryCache(time.Hour, time.Hour), 0)

	_, err := creds.Get(context.Background(), domain.CarrierAggregator)
	assert.True(t, domain.IsConfigurationError(err))

	creds.Register(domain.CarrierAggregator, func(context.Context) (string, error) { return "", nil }, 0)
	_, err = creds.Get(context.Background(), domain.CarrierAggregator)
	assert.True(t, domain.IsAuthError(err))

	boom := errors.New("login down")
	creds.Register(domain.CarrierAggregator, func(context.Context) (string, error) { return "", boom }, 0)
	_, err = creds.Get(context.Background(), domain.CarrierAggregator)
	assert.ErrorIs(t, err, boom)
}

func TestCredentialTTLHonoursTokenExpiry(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	creds := NewCredentialCache(memcache.NewMemoryCache(time.Hour, time.Hour), time.Minute)
	creds.now = func() time.Time { return now }

	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	assert.Equal(t, 9*time.Minute, creds.ttl(sign(now.Add(10*time.Minute)), 24*time.Hour))
	assert.Equal(t, time.Hour, creds.ttl(sign(now.Add(48*time.Hour)), time.Hour))
	assert.Equal(t, time.Second, creds.ttl(sign(now.Add(-time.Minute)), time.Hour))
	assert.Equal(t, 2*time.Hour, creds.ttl("opaque-token", 2*time.Hour))
	assert.Equal(t, time.Hour, creds.ttl("opaque-token", 0))
}

func TestCredentialCacheStartAndShutdown(t *testing.T) {
	creds := NewCredentialCache(memcache.NewMemoryCache(time.Hour, time.Hour), 0)
	refreshed := make(chan struct{}, 1)
	creds.Register(domain.CarrierFreight, func(context.Context) (string, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return "tok", nil
	}, 10*time.Millisecond)

	creds.Start(context.Background())
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("proactive refresh never ran")
	}
	creds.Shutdown()
}

func TestCredentialCacheLoginOutlivesFirstCaller(t *testing.T) {
	creds := NewCredentialCache(memcache.NewMemoryCache(time.Hour, time.Hour), 0)

	var logins atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	creds.Register(domain.CarrierFreight, func(ctx context.Context) (string, error) {
		logins.Add(1)
		entered <- struct{}{}
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "tok-1", nil
	}, time.Hour)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := creds.Get(firstCtx, domain.CarrierFreight)
		firstErr <- err
	}()
	<-entered

	waiter := make(chan string, 1)
	go func() {
		tok, err := creds.Get(context.Background(), domain.CarrierFreight)
		assert.NoError(t, err)
		waiter <- tok
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	assert.Equal(t, "tok-1", <-waiter)
	assert.Equal(t, int32(1), logins.Load())
}
