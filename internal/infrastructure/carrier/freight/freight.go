// Package freight adapts the B2B/LTL freight carrier. It authenticates with a
// bearer JWT obtained from its login endpoint, takes weights in kilograms and
// numeric pincodes, tracks by LRN and delivers labels asynchronously.
package freight

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"
	"shipwise-backend/pkg/logger"

	"github.com/shopspring/decimal"
)

type Config struct {
	Username    string
	Password    string
	CourierID   int
	CourierName string
	Logo        string
	CutoffHour  int            // same-day pickups requested at or after this hour roll to the next day
	Location    *time.Location // carrier's local time for pickup dates
	PickupSlot  string         // HH:MM:SS start time for pickups
	Now         func() time.Time
}

type Adapter struct {
	client *carrier.Client
	cfg    Config
}

func New(client *carrier.Client, cfg Config) *Adapter {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CutoffHour <= 0 || cfg.CutoffHour > 23 {
		cfg.CutoffHour = 14
	}
	if cfg.PickupSlot == "" {
		cfg.PickupSlot = "10:00:00"
	}
	if cfg.CourierName == "" {
		cfg.CourierName = "Freight LTL"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{client: client, cfg: cfg}
}

func (a *Adapter) Kind() domain.CarrierKind { return domain.CarrierFreight }

// --- Auth ---

type loginResponse struct {
	Success bool `json:"success"`
	Data    struct {
		JWT string `json:"jwt"`
	} `json:"data"`
}

// Login exchanges the configured username and password for a bearer JWT.
// It is registered with the credential cache, never called on the hot path.
func (a *Adapter) Login(ctx context.Context) (string, error) {
	if a.cfg.Username == "" || a.cfg.Password == "" {
		return "", domain.NewConfigurationError(domain.CarrierFreight, "login credentials not configured")
	}
	var resp loginResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method:   http.MethodPost,
		Path:     "/ums/login/login_api/",
		JSON:     map[string]string{"username": a.cfg.Username, "password": a.cfg.Password},
		SkipAuth: true,
	}, &resp); err != nil {
		if domain.IsRejection(err) {
			return "", &domain.CarrierError{Kind: domain.CarrierErrAuth, Carrier: domain.CarrierFreight, Message: domain.FailureMessage(err), Err: err}
		}
		return "", err
	}
	if resp.Data.JWT == "" {
		return "", &domain.CarrierError{Kind: domain.CarrierErrAuth, Carrier: domain.CarrierFreight, Message: "login returned no token"}
	}
	return resp.Data.JWT, nil
}

// --- Quotes ---

type dimension struct {
	Length   float64 `json:"length_cm"`
	Width    float64 `json:"width_cm"`
	Height   float64 `json:"height_cm"`
	BoxCount int     `json:"box_count"`
}

type estimateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Total float64            `json:"total"`
		TAT   carrier.FlexString `json:"tat"`
	} `json:"data"`
}

func (a *Adapter) QuoteRates(ctx context.Context, req domain.QuoteRequest) ([]domain.Quote, error) {
	origin, err := pincode(req.OriginPincode)
	if err != nil {
		return nil, nil
	}
	dest, err := pincode(req.DestPincode)
	if err != nil {
		return nil, nil
	}

	var resp estimateResponse
	_, err = a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/freight/estimate",
		JSON: map[string]interface{}{
			"source_pin":    origin,
			"consignee_pin": dest,
			"payment_mode":  paymentMode(req.COD),
			"cod_amount":    codAmount(req.COD, req.DeclaredValue),
			"inv_amount":    carrier.Float(req.DeclaredValue),
			"weight":        carrier.Float(req.Weight),
			"dimensions":    []dimension{toDimension(req.Dimensions)},
		},
	}, &resp)
	if err != nil {
		if domain.IsRejection(err) {
			return nil, nil
		}
		return nil, err
	}
	if !resp.Success || resp.Data.Total <= 0 {
		return nil, nil
	}
	return []domain.Quote{{
		Carrier:     domain.CarrierFreight,
		CourierID:   a.cfg.CourierID,
		CourierName: a.cfg.CourierName,
		ETADays:     resp.Data.TAT.Int(),
		Price:       decimal.NewFromFloat(resp.Data.Total),
		Logo:        a.cfg.Logo,
	}}, nil
}

// --- Booking ---

type manifestResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		LRN   carrier.FlexString `json:"lrnum"`
		LRNv2 carrier.FlexString `json:"lrn"`
	} `json:"data"`
}

func (a *Adapter) CreateShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Booking, error) {
	if req.Pickup.Name == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, 0, "pickup location is required")
	}
	zip, err := pincode(req.Consignee.Pincode)
	if err != nil {
		return nil, domain.NewRejection(domain.CarrierFreight, 0, "invalid consignee pincode")
	}

	boxes := 0
	names := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		boxes += it.Units
		names = append(names, it.Name)
	}
	if boxes < 1 {
		boxes = 1
	}
	dim := toDimension(req.Dimensions)
	dim.BoxCount = boxes

	var resp manifestResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/manifest",
		JSON: map[string]interface{}{
			"pickup_location_name": req.Pickup.Name,
			"payment_mode":         paymentMode(req.COD),
			"cod_amount":           codAmount(req.COD, req.CODAmount),
			"weight":               carrier.Float(req.Weight),
			"dropoff_location": map[string]interface{}{
				"consignee_name": req.Consignee.Name,
				"address":        strings.TrimSpace(req.Consignee.Line1 + " " + req.Consignee.Line2),
				"city":           req.Consignee.City,
				"state":          req.Consignee.State,
				"zip":            zip,
				"phone":          req.Consignee.Phone,
			},
			"invoices": []map[string]interface{}{{
				"inv_num": req.OrderID,
				"inv_amt": carrier.Float(req.SubTotal),
			}},
			"dimensions": []dimension{dim},
			"shipment_details": []map[string]interface{}{{
				"order_id":    req.OrderID,
				"box_count":   boxes,
				"description": strings.Join(names, ", "),
				"weight":      carrier.Float(req.Weight),
			}},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	lrn := resp.Data.LRN.String()
	if lrn == "" {
		lrn = resp.Data.LRNv2.String()
	}
	if !resp.Success || lrn == "" {
		msg := resp.Error
		if msg == "" {
			msg = carrier.ExtractMessage(raw, http.StatusOK)
		}
		return nil, domain.NewRejection(domain.CarrierFreight, http.StatusOK, msg)
	}
	// the LRN doubles as the shipment's tracking reference
	return &domain.Booking{AWB: lrn, LRN: lrn, CourierName: a.cfg.CourierName, Raw: raw}, nil
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (a *Adapter) CancelShipment(ctx context.Context, req domain.CancelRequest) error {
	lrn := req.LRN
	if lrn == "" {
		lrn = req.AWB
	}
	if lrn == "" {
		return domain.NewRejection(domain.CarrierFreight, 0, "lrn is required to cancel")
	}
	var resp ackResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPut,
		Path:   "/lrn/cancel/" + url.PathEscape(lrn),
	}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewRejection(domain.CarrierFreight, http.StatusOK, firstNonEmpty(resp.Error, resp.Message, "cancellation refused"))
	}
	return nil
}

// --- Tracking ---

type trackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		LRN         string `json:"lrnum"`
		Status      string `json:"status"`
		Origin      string `json:"origin"`
		Destination string `json:"destination"`
		EDD         string `json:"edd"`
		Scans       []struct {
			Status    string `json:"status"`
			Timestamp string `json:"scan_timestamp"`
			Location  string `json:"location"`
			Remarks   string `json:"remarks"`
		} `json:"scans"`
	} `json:"data"`
}

func (a *Adapter) TrackShipment(ctx context.Context, req domain.TrackRequest) (*domain.TrackingResult, error) {
	lrn := req.LRN
	if lrn == "" {
		lrn = req.AWB
	}
	if lrn == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, 0, "lrn is required to track")
	}
	var resp trackResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/lrn/track",
		Query:  url.Values{"lrnum": {lrn}},
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, domain.NewRejection(domain.CarrierFreight, http.StatusOK, firstNonEmpty(resp.Error, "lrn not found"))
	}

	status, known := MapStatus(resp.Data.Status)
	if !known {
		logger.WithContext(ctx).Warn().Str("lrn", lrn).Str("carrier_status", resp.Data.Status).Msg("unrecognised freight status, treating as in transit")
	}
	result := &domain.TrackingResult{
		Status:      status,
		RawStatus:   resp.Data.Status,
		Origin:      resp.Data.Origin,
		Destination: resp.Data.Destination,
		Activities:  make([]domain.TrackingActivity, 0, len(resp.Data.Scans)),
	}
	if t, ok := carrier.ParseTime(resp.Data.EDD); ok {
		result.ExpectedDate = &t
	}
	for _, s := range resp.Data.Scans {
		at, _ := carrier.ParseTime(s.Timestamp)
		result.Activities = append(result.Activities, domain.TrackingActivity{
			At:       at,
			Status:   s.Status,
			Location: s.Location,
			Detail:   s.Remarks,
		})
	}
	return result, nil
}

var statusTable = map[string]domain.TrackingStatus{
	"MANIFESTED":        domain.TrackingManifested,
	"PICKED_UP":         domain.TrackingPicked,
	"LEFT_ORIGIN":       domain.TrackingInTransit,
	"REACH_DESTINATION": domain.TrackingInTransit,
	"UNDEL_REATTEMPT":   domain.TrackingInTransit,
	"PART_DEL":          domain.TrackingInTransit,
	"OFD":               domain.TrackingInTransit,
	"DELIVERED":         domain.TrackingDelivered,
}

// MapStatus collapses a freight status into the canonical set. Statuses
// outside the table are reported as IN_TRANSIT with known=false.
func MapStatus(status string) (domain.TrackingStatus, bool) {
	if s, ok := statusTable[strings.ToUpper(strings.TrimSpace(status))]; ok {
		return s, true
	}
	return domain.TrackingInTransit, false
}

// --- Pickup ---

// PickupDate returns the calendar date to request a pickup at `at` for. Only
// a same-day pickup is subject to the cutoff: it rolls to the next day when
// either now or at is at or after cutoffHour local time. Past dates count as
// today; later days are kept as asked.
func PickupDate(now, at time.Time, cutoffHour int, loc *time.Location) time.Time {
	localNow, localAt := now.In(loc), at.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	day := time.Date(localAt.Year(), localAt.Month(), localAt.Day(), 0, 0, 0, 0, loc)
	if day.After(today) {
		return day
	}
	if day.Before(today) {
		localAt = localNow
	}
	if localNow.Hour() >= cutoffHour || localAt.Hour() >= cutoffHour {
		return today.AddDate(0, 0, 1)
	}
	return today
}

type pickupResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		PickupID carrier.FlexString `json:"pickup_id"`
	} `json:"data"`
	PRID carrier.FlexString `json:"pr_id"`
}

func (a *Adapter) RequestPickup(ctx context.Context, req domain.PickupRequest) (*domain.Pickup, error) {
	if req.Warehouse.Name == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, 0, "pickup location is required")
	}
	count := req.Packages
	if count < 1 {
		count = 1
	}
	date := PickupDate(a.cfg.Now(), req.At, a.cfg.CutoffHour, a.cfg.Location)

	var resp pickupResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/pickup_requests",
		JSON: map[string]interface{}{
			"client_warehouse":       req.Warehouse.Name,
			"pickup_date":            date.Format("2006-01-02"),
			"start_time":             a.cfg.PickupSlot,
			"expected_package_count": count,
		},
	}, &resp); err != nil {
		return nil, err
	}

	id := resp.Data.PickupID.String()
	if id == "" {
		id = resp.PRID.String()
	}
	if id == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, http.StatusOK, firstNonEmpty(resp.Error, "pickup not scheduled"))
	}
	return &domain.Pickup{PickupID: id, ScheduledFor: date}, nil
}

// --- Labels ---

type labelResponse struct {
	Success bool               `json:"success"`
	JobID   carrier.FlexString `json:"job_id"`
	Error   string             `json:"error"`
}

// GenerateLabel starts an asynchronous label job. The URL arrives later on
// the label webhook, matched back to the order by LRN.
func (a *Adapter) GenerateLabel(ctx context.Context, req domain.LabelRequest) (*domain.Label, error) {
	lrn := req.LRN
	if lrn == "" {
		lrn = req.AWB
	}
	if lrn == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, 0, "lrn is required for a label")
	}
	var resp labelResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/label/get_urls/std/" + url.PathEscape(lrn),
	}, &resp); err != nil {
		return nil, err
	}
	if resp.JobID == "" {
		return nil, domain.NewRejection(domain.CarrierFreight, http.StatusOK, firstNonEmpty(resp.Error, "label job not created"))
	}
	return &domain.Label{JobID: resp.JobID.String(), Pending: true}, nil
}

// --- Warehouses ---

func (a *Adapter) RegisterWarehouse(ctx context.Context, w domain.Warehouse) error {
	pin, err := pincode(w.Pincode)
	if err != nil {
		return domain.NewRejection(domain.CarrierFreight, 0, "invalid warehouse pincode")
	}
	var resp ackResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/client-warehouse/create/",
		JSON: map[string]interface{}{
			"name":     w.Name,
			"pin_code": pin,
			"city":     w.City,
			"state":    w.State,
			"country":  w.Country,
			"address_details": map[string]string{
				"address":        w.Address,
				"contact_person": w.ContactName,
				"phone_number":   w.Phone,
				"email":          w.Email,
			},
		},
	}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewRejection(domain.CarrierFreight, http.StatusOK, firstNonEmpty(resp.Error, resp.Message, "warehouse not registered"))
	}
	return nil
}

// --- helpers ---

func pincode(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func paymentMode(cod bool) string {
	if cod {
		return "cod"
	}
	return "prepaid"
}

func codAmount(cod bool, amount decimal.Decimal) float64 {
	if !cod {
		return 0
	}
	return carrier.Float(amount)
}

func toDimension(d domain.Dimensions) dimension {
	return dimension{
		Length:   carrier.Float(d.Length),
		Width:    carrier.Float(d.Breadth),
		Height:   carrier.Float(d.Height),
		BoxCount: 1,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	_ domain.CarrierAdapter     = (*Adapter)(nil)
	_ domain.WarehouseRegistrar = (*Adapter)(nil)
)
