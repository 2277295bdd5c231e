package v1

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"shipwise-backend/internal/domain"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUsecaseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", fmt.Errorf("load: %w", domain.ErrOrderNotFound), http.StatusNotFound, ""},
		{"unknown courier", domain.ErrUnknownCourier, http.StatusBadRequest, ""},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusPaymentRequired, ""},
		{"booking in progress", domain.ErrBookingInProgress, http.StatusConflict, ""},
		{"courier not quoted", fmt.Errorf("%w: courier 7", domain.ErrCourierNotQuoted), http.StatusUnprocessableEntity, ""},
		{"charges missing", domain.ErrChargesMissing, http.StatusUnprocessableEntity, ""},
		{"carrier rejection", domain.NewRejection(domain.CarrierParcel, 400, "pincode not serviceable"), http.StatusUnprocessableEntity, "pincode not serviceable"},
		{"carrier down", domain.NewTransportError(domain.CarrierFreight, 503, errors.New("dial tcp 10.0.0.1:443")), http.StatusBadGateway, "carrier unavailable, try again later"},
		{"misconfigured", domain.NewConfigurationError(domain.CarrierAggregator, "no password"), http.StatusServiceUnavailable, "carrier not configured"},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUsecaseError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
			assert.NotContains(t, body["error"], "10.0.0.1")
		})
	}
}
