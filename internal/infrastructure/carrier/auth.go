package carrier

import (
	"context"
	"net/http"

	"shipwise-backend/internal/domain"
)

// APIKeyAuth sends a static key as "Authorization: Token <key>".
type APIKeyAuth struct {
	Carrier domain.CarrierKind
	Key     string
}

func (a APIKeyAuth) Authorize(_ context.Context, req *http.Request) error {
	if a.Key == "" {
		return domain.NewConfigurationError(a.Carrier, "api key not configured")
	}
	req.Header.Set("Authorization", "Token "+a.Key)
	return nil
}

// Invalidate reports false: a static key cannot be refreshed.
func (a APIKeyAuth) Invalidate() bool { return false }

// BearerAuth sends a token from the credential cache as a bearer header.
type BearerAuth struct {
	Carrier     domain.CarrierKind
	Credentials *CredentialCache
}

func (a BearerAuth) Authorize(ctx context.Context, req *http.Request) error {
	token, err := a.Credentials.Get(ctx, a.Carrier)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (a BearerAuth) Invalidate() bool {
	a.Credentials.Invalidate(a.Carrier)
	return true
}
