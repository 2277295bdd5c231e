package freight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := carrier.NewClient(carrier.ClientConfig{Carrier: domain.CarrierFreight, BaseURL: srv.URL}, nil)
	return New(client, Config{Username: "ops", Password: "secret", CourierID: domain.CourierIDFreight})
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in    string
		want  domain.TrackingStatus
		known bool
	}{
		{"MANIFESTED", domain.TrackingManifested, true},
		{"picked_up", domain.TrackingPicked, true},
		{"UNDEL_REATTEMPT", domain.TrackingInTransit, true},
		{" DELIVERED ", domain.TrackingDelivered, true},
		{"HELD_AT_CUSTOMS", domain.TrackingInTransit, false},
	}
	for _, tt := range tests {
		got, known := MapStatus(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}

func TestPickupDate(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		ist = time.FixedZone("IST", 5*3600+1800)
	}
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, ist) }
	before := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) // 13:30 IST
	after := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)  // 14:30 IST

	tests := []struct {
		name string
		now  time.Time
		at   time.Time
		want time.Time
	}{
		{"same day before cutoff", before, before, day(18)},
		{"same day after cutoff", after, after, day(19)},
		{"asked for later today past cutoff", before, after, day(19)},
		{"asked early today but already past cutoff", after, before, day(19)},
		{"future day after cutoff hour is kept", after, time.Date(2026, 10, 19, 16, 0, 0, 0, ist), day(19)},
		{"future day early morning is kept", before, time.Date(2026, 10, 20, 7, 0, 0, 0, ist), day(20)},
		{"past date counts as today", before, time.Date(2026, 10, 17, 16, 0, 0, 0, ist), day(18)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickupDate(tt.now, tt.at, 14, ist))
		})
	}
}

func TestRequestPickupKeepsFutureDate(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		ist = time.FixedZone("IST", 5*3600+1800)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-10-19", body["pickup_date"])
		_, _ = w.Write([]byte(`{"success": true, "data": {"pickup_id": 77}}`))
	}))
	t.Cleanup(srv.Close)
	client := carrier.NewClient(carrier.ClientConfig{Carrier: domain.CarrierFreight, BaseURL: srv.URL}, nil)
	a := New(client, Config{
		CourierID: domain.CourierIDFreight,
		Location:  ist,
		Now:       func() time.Time { return time.Date(2026, 10, 18, 15, 0, 0, 0, ist) },
	})

	pickup, err := a.RequestPickup(context.Background(), domain.PickupRequest{
		Warehouse: domain.Warehouse{Name: "Main WH"},
		At:        time.Date(2026, 10, 19, 16, 0, 0, 0, ist),
	})
	require.NoError(t, err)
	assert.Equal(t, "77", pickup.PickupID)
}

func TestLogin(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ums/login/login_api/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops", body["username"])
		_, _ = w.Write([]byte(`{"success": true, "data": {"jwt": "tok"}}`))
	})
	tok, err := a.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	bad := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "invalid credentials"}`))
	})
	_, err = bad.Login(context.Background())
	assert.True(t, domain.IsAuthError(err))
}

func TestCreateShipmentReturnsLRN(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manifest", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cod", body["payment_mode"])
		assert.Equal(t, 1200.0, body["cod_amount"])
		_, _ = w.Write([]byte(`{"success": true, "data": {"lrnum": 220011}}`))
	})
	booking, err := a.CreateShipment(context.Background(), domain.ShipmentRequest{
		OrderID:   "SW-1",
		COD:       true,
		CODAmount: decimal.NewFromInt(1200),
		Weight:    decimal.NewFromInt(40),
		Pickup:    domain.Warehouse{Name: "Main WH"},
		Consignee: domain.Address{Name: "Asha", Pincode: "411001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "220011", booking.LRN)
	assert.Equal(t, "220011", booking.AWB)
}

func TestTrackShipment(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "LR1", r.URL.Query().Get("lrnum"))
		_, _ = w.Write([]byte(`{"success": true, "data": {
			"lrnum": "LR1", "status": "OFD", "edd": "2026-10-20",
			"scans": [{"status": "LEFT_ORIGIN", "scan_timestamp": "2026-10-18T10:00:00", "location": "Pune"}]
		}}`))
	})
	res, err := a.TrackShipment(context.Background(), domain.TrackRequest{LRN: "LR1"})
	require.NoError(t, err)
	assert.Equal(t, domain.TrackingInTransit, res.Status)
	assert.Equal(t, "OFD", res.RawStatus)
	require.NotNil(t, res.ExpectedDate)
	require.Len(t, res.Activities, 1)
	assert.Equal(t, "Pune", res.Activities[0].Location)

	_, err = a.TrackShipment(context.Background(), domain.TrackRequest{})
	assert.True(t, domain.IsRejection(err))
}

func TestGenerateLabelIsAsynchronous(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/label/get_urls/std/LR1", r.URL.Path)
		_, _ = w.Write([]byte(`{"success": true, "job_id": 77}`))
	})
	label, err := a.GenerateLabel(context.Background(), domain.LabelRequest{LRN: "LR1"})
	require.NoError(t, err)
	assert.True(t, label.Pending)
	assert.Equal(t, "77", label.JobID)
}
