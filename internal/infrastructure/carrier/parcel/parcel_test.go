package parcel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		statusType, status string
		want               domain.TrackingStatus
	}{
		{"UD", "Manifested", domain.TrackingManifested},
		{"UD", "In Transit", domain.TrackingInTransit},
		{"PU", "Picked Up", domain.TrackingPicked},
		{"DL", "Delivered", domain.TrackingDelivered},
		{"DL", "RTO", domain.TrackingRTO},
		{"RT", "In Transit", domain.TrackingRTO},
		{"CN", "Canceled", domain.TrackingCancelled},
		{"UD", "Shipment Lost", domain.TrackingLost},
		{"XX", "Whatever", domain.TrackingUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapStatus(tt.statusType, tt.status), tt.statusType+"/"+tt.status)
	}
}

func TestCreateShipment(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantAWB  string
		wantErr  string
	}{
		{"booked", `{"success": true, "packages": [{"waybill": "AWB1", "status": "Success"}]}`, "AWB1", ""},
		{"refused", `{"success": false, "rmk": "bad request", "packages": [{"waybill": "", "status": "Fail", "remarks": ["Non serviceable pincode"]}]}`, "", "Non serviceable pincode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Token key-1", r.Header.Get("Authorization"))
				require.NoError(t, r.ParseForm())
				var payload createPayload
				require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &payload))
				require.Len(t, payload.Shipments, 1)
				assert.Equal(t, "COD", payload.Shipments[0].PaymentMode)
				assert.Equal(t, "500", payload.Shipments[0].Weight)
				assert.Equal(t, "Main WH", payload.PickupLocation.Name)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			client := carrier.NewClient(carrier.ClientConfig{Carrier: domain.CarrierParcel, BaseURL: srv.URL},
				carrier.APIKeyAuth{Carrier: domain.CarrierParcel, Key: "key-1"})
			a := New(client, Config{CourierID: domain.CourierIDParcel})

			booking, err := a.CreateShipment(context.Background(), domain.ShipmentRequest{
				OrderID:   "SW-1",
				COD:       true,
				CODAmount: decimal.NewFromInt(1200),
				Weight:    decimal.RequireFromString("0.5"),
				Pickup:    domain.Warehouse{Name: "Main WH"},
				Items:     []domain.LineItem{{Name: "Mug", Units: 2}},
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, domain.IsRejection(err))
				assert.Equal(t, tt.wantErr, domain.FailureMessage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAWB, booking.AWB)
		})
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	client := carrier.NewClient(carrier.ClientConfig{Carrier: domain.CarrierParcel, BaseURL: srv.URL},
		carrier.APIKeyAuth{Carrier: domain.CarrierParcel})
	a := New(client, Config{})
	_, err := a.TrackShipment(context.Background(), domain.TrackRequest{AWB: "AWB1"})
	assert.True(t, domain.IsConfigurationError(err))
}
