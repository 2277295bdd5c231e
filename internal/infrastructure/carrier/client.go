package carrier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// ClientConfig holds the transport settings of one carrier.
type ClientConfig struct {
	Carrier      domain.CarrierKind
	BaseURL      string
	Timeout      time.Duration // per attempt
	MaxRetries   int           // retries after the first attempt, transport failures only
	RetryBackoff time.Duration // doubled per retry
	RatePerSec   float64       // outbound token bucket; 0 disables
	Burst        int
}

// Request describes one call relative to the carrier base URL.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	JSON     interface{} // encoded as the request body when set
	Form     url.Values  // encoded as application/x-www-form-urlencoded when set
	SkipAuth bool        // login endpoints
}

// Authenticator decorates outbound requests with a carrier credential.
type Authenticator interface {
	Authorize(ctx context.Context, req *http.Request) error
	// Invalidate drops the cached credential. It reports false when the
	// credential cannot be renewed, so retrying is pointless.
	Invalidate() bool
}

// Client is the HTTP transport shared by all carrier adapters. It applies the
// per-attempt timeout, the outbound rate limit, bounded retries for transient
// failures and a single forced credential refresh on 401/403.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	auth    Authenticator
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg ClientConfig, auth Authenticator) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{},
		auth:  auth,
		sleep: sleepCtx,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c
}

func (c *Client) Carrier() domain.CarrierKind { return c.cfg.Carrier }

// SetAuthenticator is used when the login call itself goes through this client.
func (c *Client) SetAuthenticator(auth Authenticator) { c.auth = auth }

// Do performs req and decodes a 2xx JSON body into out when out is non-nil.
// The raw body is returned for callers that keep it; it must not be logged.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError(c.cfg.Carrier, "base url not configured")
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, domain.NewRejection(c.cfg.Carrier, 0, fmt.Sprintf("encode request: %v", err))
	}

	log := logger.WithContext(ctx)
	authRefreshed := false
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, domain.NewTransportError(c.cfg.Carrier, 0, err)
			}
		}

		status, respBody, err := c.roundTrip(ctx, req, body, contentType)
		switch {
		case err != nil:
			var ce *domain.CarrierError
			if errors.As(err, &ce) {
				// credential lookup failed; already classified
				return nil, err
			}
			if attempt < c.cfg.MaxRetries && ctx.Err() == nil {
				log.Warn().Err(err).Str("carrier", string(c.cfg.Carrier)).Int("attempt", attempt+1).Msg("carrier call failed, retrying")
				if c.backoff(ctx, attempt) == nil {
					continue
				}
			}
			return nil, domain.NewTransportError(c.cfg.Carrier, 0, err)

		case status >= 200 && status < 300:
			if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return respBody, domain.NewRejection(c.cfg.Carrier, status, "unreadable carrier response")
				}
			}
			return respBody, nil

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if !req.SkipAuth && !authRefreshed && c.auth != nil && c.auth.Invalidate() {
				authRefreshed = true
				attempt--
				log.Info().Str("carrier", string(c.cfg.Carrier)).Msg("carrier credential rejected, refreshing")
				continue
			}
			return nil, &domain.CarrierError{
				Kind:       domain.CarrierErrAuth,
				Carrier:    c.cfg.Carrier,
				StatusCode: status,
				Message:    ExtractMessage(respBody, status),
			}

		case status == http.StatusTooManyRequests || status >= 500:
			if attempt < c.cfg.MaxRetries {
				log.Warn().Str("carrier", string(c.cfg.Carrier)).Int("status", status).Int("attempt", attempt+1).Msg("carrier unavailable, retrying")
				if c.backoff(ctx, attempt) == nil {
					continue
				}
			}
			return nil, &domain.CarrierError{
				Kind:       domain.CarrierErrTransport,
				Carrier:    c.cfg.Carrier,
				StatusCode: status,
				Message:    ExtractMessage(respBody, status),
			}

		default:
			return nil, domain.NewRejection(c.cfg.Carrier, status, ExtractMessage(respBody, status))
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, req Request, body []byte, contentType string) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if !req.SkipAuth && c.auth != nil {
		if err := c.auth.Authorize(ctx, httpReq); err != nil {
			return 0, nil, err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.CarrierLatencyMS.WithLabelValues(string(c.cfg.Carrier)).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.CarrierRequestsTotal.WithLabelValues(string(c.cfg.Carrier), "transport_error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.CarrierRequestsTotal.WithLabelValues(string(c.cfg.Carrier), "transport_error").Inc()
		return 0, nil, err
	}
	metrics.CarrierRequestsTotal.WithLabelValues(string(c.cfg.Carrier), statusClass(resp.StatusCode)).Inc()
	return resp.StatusCode, respBody, nil
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	return c.sleep(ctx, c.cfg.RetryBackoff*time.Duration(1<<attempt))
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		return b, "application/json", err
	}
	return nil, "", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}

var messageKeys = []string{"message", "error", "detail", "rmk", "errors", "remark", "msg"}

// ExtractMessage pulls a human readable reason out of a carrier error body.
// Only the message text is returned, never the body itself.
func ExtractMessage(body []byte, status int) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err == nil {
		if msg := findMessage(doc, 0); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "carrier request failed"
}

func findMessage(v interface{}, depth int) string {
	if depth > 3 {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := findMessage(item, depth+1); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]interface{}:
		for _, k := range messageKeys {
			if inner, ok := t[k]; ok {
				if s := findMessage(inner, depth+1); s != "" {
					return s
				}
			}
		}
		if data, ok := t["data"]; ok {
			return findMessage(data, depth+1)
		}
	}
	return ""
}
