package aggregator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := carrier.NewClient(carrier.ClientConfig{Carrier: domain.CarrierAggregator, BaseURL: srv.URL}, nil)
	return New(client, Config{Email: "ops@example.com", Password: "pw", Members: []int{24, 25}, LogoBaseURL: "https://cdn.example.com/logos/"})
}

func TestQuoteRatesKeepsMembersOnly(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("cod"))
		assert.Equal(t, "560001", r.URL.Query().Get("pickup_postcode"))
		_, _ = w.Write([]byte(`{"status": 200, "data": {"available_courier_companies": [
			{"courier_company_id": 24, "courier_name": "Xpress", "rate": 95.5, "estimated_delivery_days": "3"},
			{"courier_company_id": 24, "courier_name": "Xpress dup", "rate": 90, "estimated_delivery_days": "3"},
			{"courier_company_id": 99, "courier_name": "Stranger", "rate": 10, "estimated_delivery_days": 1},
			{"courier_company_id": 25, "courier_name": "Blue", "rate": 0, "estimated_delivery_days": 2}
		]}}`))
	})

	quotes, err := a.QuoteRates(context.Background(), domain.QuoteRequest{
		OriginPincode: "560001", DestPincode: "411001", COD: true, Weight: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 24, quotes[0].CourierID)
	assert.Equal(t, 3, quotes[0].ETADays)
	assert.Equal(t, "95.5", quotes[0].Price.String())
	assert.Equal(t, "https://cdn.example.com/logos/24.png", quotes[0].Logo)
}

func TestTwoPhaseBooking(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/orders/create/adhoc":
			_, _ = w.Write([]byte(`{"order_id": 5001, "shipment_id": 7001}`))
		case "/v1/external/courier/assign/awb":
			_, _ = w.Write([]byte(`{"awb_assign_status": 1, "response": {"data": {"awb_code": "SR123", "courier_name": "Xpress"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	progress, err := a.CreateOrder(ctx, domain.ShipmentRequest{OrderID: "SW-1", Pickup: domain.Warehouse{Name: "Main WH"}})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPhaseOrderCreated, progress.Phase)
	assert.Equal(t, "5001", progress.ShiprocketOrderID)
	assert.Equal(t, "7001", progress.ShipmentID)

	booking, err := a.AssignAWB(ctx, progress, 24)
	require.NoError(t, err)
	assert.Equal(t, "SR123", booking.AWB)
	assert.Equal(t, "5001", booking.ShiprocketOrderID)

	_, err = a.AssignAWB(ctx, progress, 99)
	assert.True(t, domain.IsRejection(err))
}

func TestAssignAWBFailureIsRejection(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"awb_assign_status": 0, "response": {"data": {"awb_assign_error": "Courier not serviceable"}}}`))
	})
	_, err := a.AssignAWB(context.Background(), domain.BookingProgress{ShipmentID: "7001"}, 25)
	require.Error(t, err)
	assert.Equal(t, "Courier not serviceable", domain.FailureMessage(err))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, domain.TrackingPicked, MapStatus("Picked Up"))
	assert.Equal(t, domain.TrackingRTO, MapStatus("rto delivered"))
	assert.Equal(t, domain.TrackingCancelled, MapStatus("Canceled"))
	assert.Equal(t, domain.TrackingUnknown, MapStatus("Self Fulfilled"))
}
