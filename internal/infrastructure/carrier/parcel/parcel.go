// Package parcel adapts the B2C parcel carrier. It authenticates with a
// static API key, takes weights in grams and pincodes as strings.
package parcel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"
	"shipwise-backend/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type Config struct {
	CourierID   int
	CourierName string
	Logo        string
	Mode        string // "S" surface, "E" express
	PickupTime  string // HH:MM:SS slot sent with pickup requests
}

type Adapter struct {
	client *carrier.Client
	cfg    Config
}

func New(client *carrier.Client, cfg Config) *Adapter {
	if cfg.Mode == "" {
		cfg.Mode = "S"
	}
	if cfg.PickupTime == "" {
		cfg.PickupTime = "11:00:00"
	}
	if cfg.CourierName == "" {
		cfg.CourierName = "Parcel Surface"
	}
	return &Adapter{client: client, cfg: cfg}
}

func (a *Adapter) Kind() domain.CarrierKind { return domain.CarrierParcel }

// --- Quotes ---

type chargeResponse struct {
	TotalAmount float64 `json:"total_amount"`
}

type tatResponse struct {
	Data struct {
		TAT carrier.FlexString `json:"tat"`
	} `json:"data"`
}

func (a *Adapter) QuoteRates(ctx context.Context, req domain.QuoteRequest) ([]domain.Quote, error) {
	paymentType := "Pre-paid"
	q := url.Values{}
	if req.COD {
		paymentType = "COD"
		q.Set("cod", req.DeclaredValue.StringFixed(2))
	}
	q.Set("md", a.cfg.Mode)
	q.Set("ss", "Delivered")
	q.Set("o_pin", req.OriginPincode)
	q.Set("d_pin", req.DestPincode)
	q.Set("cgm", strconv.FormatInt(carrier.Grams(req.Weight), 10))
	q.Set("pt", paymentType)

	var charges []chargeResponse
	_, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/api/kinko/v1/invoice/charges/.json",
		Query:  q,
	}, &charges)
	if err != nil {
		if domain.IsRejection(err) {
			// lane not serviceable
			return nil, nil
		}
		return nil, err
	}
	if len(charges) == 0 || charges[0].TotalAmount <= 0 {
		return nil, nil
	}

	return []domain.Quote{{
		Carrier:     domain.CarrierParcel,
		CourierID:   a.cfg.CourierID,
		CourierName: a.cfg.CourierName,
		ETADays:     a.expectedTAT(ctx, req.OriginPincode, req.DestPincode),
		Price:       decimal.NewFromFloat(charges[0].TotalAmount),
		Logo:        a.cfg.Logo,
	}}, nil
}

// expectedTAT is best effort; a quote without an ETA is still a quote.
func (a *Adapter) expectedTAT(ctx context.Context, origin, dest string) int {
	var resp tatResponse
	_, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/api/dc/expected_tat",
		Query: url.Values{
			"origin_pin":      {origin},
			"destination_pin": {dest},
			"mot":             {a.cfg.Mode},
		},
	}, &resp)
	if err != nil {
		logger.WithContext(ctx).Debug().Err(err).Msg("parcel tat lookup failed")
		return 0
	}
	return resp.Data.TAT.Int()
}

// --- Booking ---

type shipment struct {
	Name          string `json:"name"`
	Address       string `json:"add"`
	Pincode       string `json:"pin"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	Phone         string `json:"phone"`
	Order         string `json:"order"`
	PaymentMode   string `json:"payment_mode"`
	ProductsDesc  string `json:"products_desc"`
	HSNCode       string `json:"hsn_code"`
	CODAmount     string `json:"cod_amount"`
	OrderDate     string `json:"order_date"`
	TotalAmount   string `json:"total_amount"`
	SellerName    string `json:"seller_name"`
	SellerAddress string `json:"seller_add"`
	Quantity      string `json:"quantity"`
	Waybill       string `json:"waybill"`
	Length        string `json:"shipment_length"`
	Width         string `json:"shipment_width"`
	Height        string `json:"shipment_height"`
	Weight        string `json:"weight"` // grams
	ShippingMode  string `json:"shipping_mode"`
}

type createPayload struct {
	Shipments      []shipment `json:"shipments"`
	PickupLocation struct {
		Name string `json:"name"`
	} `json:"pickup_location"`
}

type createResponse struct {
	Success  bool   `json:"success"`
	Remark   string `json:"rmk"`
	Packages []struct {
		Waybill string   `json:"waybill"`
		Status  string   `json:"status"`
		Remarks []string `json:"remarks"`
	} `json:"packages"`
}

func (a *Adapter) CreateShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Booking, error) {
	if req.Pickup.Name == "" {
		return nil, domain.NewRejection(domain.CarrierParcel, 0, "pickup location is required")
	}

	paymentMode := "Prepaid"
	codAmount := "0"
	if req.COD {
		paymentMode = "COD"
		codAmount = req.CODAmount.StringFixed(2)
	}
	names := make([]string, 0, len(req.Items))
	hsn := ""
	units := 0
	for _, it := range req.Items {
		names = append(names, it.Name)
		units += it.Units
		if hsn == "" {
			hsn = it.HSN
		}
	}
	if units == 0 {
		units = 1
	}

	consignee := req.Consignee
	payload := createPayload{
		Shipments: []shipment{{
			Name:          consignee.Name,
			Address:       strings.TrimSpace(consignee.Line1 + " " + consignee.Line2),
			Pincode:       consignee.Pincode,
			City:          consignee.City,
			State:         consignee.State,
			Country:       countryOrDefault(consignee.Country),
			Phone:         consignee.Phone,
			Order:         req.OrderID,
			PaymentMode:   paymentMode,
			ProductsDesc:  strings.Join(names, ", "),
			HSNCode:       hsn,
			CODAmount:     codAmount,
			OrderDate:     req.OrderDate.Format("2006-01-02 15:04:05"),
			TotalAmount:   req.SubTotal.StringFixed(2),
			SellerName:    req.Pickup.ContactName,
			SellerAddress: req.Pickup.Address,
			Quantity:      strconv.Itoa(units),
			Length:        req.Dimensions.Length.String(),
			Width:         req.Dimensions.Breadth.String(),
			Height:        req.Dimensions.Height.String(),
			Weight:        strconv.FormatInt(carrier.Grams(req.Weight), 10),
			ShippingMode:  shippingMode(a.cfg.Mode),
		}},
	}
	payload.PickupLocation.Name = req.Pickup.Name

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode parcel shipment: %w", err)
	}

	var resp createResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/api/cmu/create.json",
		Form:   url.Values{"format": {"json"}, "data": {string(data)}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	for _, p := range resp.Packages {
		if p.Waybill != "" && !strings.EqualFold(p.Status, "fail") {
			return &domain.Booking{AWB: p.Waybill, CourierName: a.cfg.CourierName, Raw: raw}, nil
		}
	}

	msg := resp.Remark
	for _, p := range resp.Packages {
		if len(p.Remarks) > 0 {
			msg = strings.Join(p.Remarks, "; ")
			break
		}
	}
	if msg == "" {
		msg = "shipment not created"
	}
	return nil, domain.NewRejection(domain.CarrierParcel, http.StatusOK, msg)
}

type cancelResponse struct {
	Status carrier.FlexString `json:"status"`
	Remark string             `json:"remark"`
	Error  string             `json:"error"`
}

func (a *Adapter) CancelShipment(ctx context.Context, req domain.CancelRequest) error {
	if req.AWB == "" {
		return domain.NewRejection(domain.CarrierParcel, 0, "waybill is required to cancel")
	}
	var resp cancelResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/api/p/edit",
		JSON:   map[string]string{"waybill": req.AWB, "cancellation": "true"},
	}, &resp); err != nil {
		return err
	}
	if ok, _ := strconv.ParseBool(resp.Status.String()); !ok {
		msg := resp.Remark
		if msg == "" {
			msg = resp.Error
		}
		if msg == "" {
			msg = "cancellation refused"
		}
		return domain.NewRejection(domain.CarrierParcel, http.StatusOK, msg)
	}
	return nil
}

// --- Tracking ---

type trackResponse struct {
	Error        string `json:"Error"`
	ShipmentData []struct {
		Shipment struct {
			AWB          string `json:"AWB"`
			Origin       string `json:"Origin"`
			Destination  string `json:"Destination"`
			ExpectedDate string `json:"ExpectedDeliveryDate"`
			Status       struct {
				Status         string `json:"Status"`
				StatusType     string `json:"StatusType"`
				StatusDateTime string `json:"StatusDateTime"`
				StatusLocation string `json:"StatusLocation"`
				Instructions   string `json:"Instructions"`
			} `json:"Status"`
			Scans []struct {
				ScanDetail struct {
					Scan            string `json:"Scan"`
					ScanDateTime    string `json:"ScanDateTime"`
					ScannedLocation string `json:"ScannedLocation"`
					Instructions    string `json:"Instructions"`
				} `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
}

func (a *Adapter) TrackShipment(ctx context.Context, req domain.TrackRequest) (*domain.TrackingResult, error) {
	if req.AWB == "" {
		return nil, domain.NewRejection(domain.CarrierParcel, 0, "waybill is required to track")
	}
	var resp trackResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/packages/json/",
		Query:  url.Values{"waybill": {req.AWB}},
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.ShipmentData) == 0 {
		msg := resp.Error
		if msg == "" {
			msg = "waybill not found"
		}
		return nil, domain.NewRejection(domain.CarrierParcel, http.StatusOK, msg)
	}

	s := resp.ShipmentData[0].Shipment
	result := &domain.TrackingResult{
		Status:      MapStatus(s.Status.StatusType, s.Status.Status),
		RawStatus:   s.Status.Status,
		Origin:      s.Origin,
		Destination: s.Destination,
		Activities:  make([]domain.TrackingActivity, 0, len(s.Scans)),
	}
	if t, ok := carrier.ParseTime(s.ExpectedDate); ok {
		result.ExpectedDate = &t
	}
	for _, scan := range s.Scans {
		at, _ := carrier.ParseTime(scan.ScanDetail.ScanDateTime)
		result.Activities = append(result.Activities, domain.TrackingActivity{
			At:       at,
			Status:   scan.ScanDetail.Scan,
			Location: scan.ScanDetail.ScannedLocation,
			Detail:   scan.ScanDetail.Instructions,
		})
	}
	return result, nil
}

// MapStatus collapses the parcel carrier's (StatusType, Status) pair into the
// canonical set. Unrecognised pairs are UNKNOWN.
func MapStatus(statusType, status string) domain.TrackingStatus {
	st := strings.ToUpper(strings.TrimSpace(statusType))
	s := strings.ToLower(strings.TrimSpace(status))

	if strings.Contains(s, "lost") {
		return domain.TrackingLost
	}
	switch st {
	case "DL":
		if strings.Contains(s, "rto") {
			return domain.TrackingRTO
		}
		return domain.TrackingDelivered
	case "RT":
		return domain.TrackingRTO
	case "CN":
		return domain.TrackingCancelled
	case "PU":
		return domain.TrackingPicked
	case "PP":
		return domain.TrackingManifested
	case "UD":
		switch s {
		case "manifested", "not picked", "pending pickup":
			return domain.TrackingManifested
		case "in transit", "pending", "dispatched", "out for delivery":
			return domain.TrackingInTransit
		}
	}
	return domain.TrackingUnknown
}

// --- Pickup ---

type pickupResponse struct {
	PickupID   carrier.FlexString `json:"pickup_id"`
	PickupDate string             `json:"pickup_date"`
	PickupTime string             `json:"pickup_time"`
}

func (a *Adapter) RequestPickup(ctx context.Context, req domain.PickupRequest) (*domain.Pickup, error) {
	if req.Warehouse.Name == "" {
		return nil, domain.NewRejection(domain.CarrierParcel, 0, "pickup location is required")
	}
	count := req.Packages
	if count < 1 {
		count = 1
	}
	var resp pickupResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/fm/request/new/",
		JSON: map[string]interface{}{
			"pickup_time":            a.cfg.PickupTime,
			"pickup_date":            req.At.Format("2006-01-02"),
			"pickup_location":        req.Warehouse.Name,
			"expected_package_count": count,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.PickupID == "" {
		return nil, domain.NewRejection(domain.CarrierParcel, http.StatusOK, carrier.ExtractMessage(raw, http.StatusOK))
	}

	scheduled := req.At
	if t, ok := carrier.ParseTime(strings.TrimSpace(resp.PickupDate + " " + resp.PickupTime)); ok {
		scheduled = t
	}
	return &domain.Pickup{PickupID: resp.PickupID.String(), ScheduledFor: scheduled}, nil
}

// --- Labels ---

type packingSlipResponse struct {
	PackagesFound int `json:"packages_found"`
	Packages      []struct {
		PDFDownloadLink string `json:"pdf_download_link"`
	} `json:"packages"`
}

func (a *Adapter) GenerateLabel(ctx context.Context, req domain.LabelRequest) (*domain.Label, error) {
	if req.AWB == "" {
		return nil, domain.NewRejection(domain.CarrierParcel, 0, "waybill is required for a label")
	}
	var resp packingSlipResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/api/p/packing_slip",
		Query:  url.Values{"wbns": {req.AWB}, "pdf": {"true"}},
	}, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Packages {
		if p.PDFDownloadLink != "" {
			return &domain.Label{URL: p.PDFDownloadLink}, nil
		}
	}
	return nil, domain.NewRejection(domain.CarrierParcel, http.StatusOK, "packing slip not available")
}

// --- Warehouses ---

type warehouseResponse struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error"`
}

func (a *Adapter) RegisterWarehouse(ctx context.Context, w domain.Warehouse) error {
	var resp warehouseResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/api/backend/clientwarehouse/create/",
		JSON: map[string]string{
			"name":            w.Name,
			"registered_name": w.ContactName,
			"email":           w.Email,
			"phone":           w.Phone,
			"address":         w.Address,
			"city":            w.City,
			"pin":             w.Pincode,
			"country":         countryOrDefault(w.Country),
			"return_address":  w.Address,
			"return_pin":      w.Pincode,
			"return_city":     w.City,
			"return_state":    w.State,
			"return_country":  countryOrDefault(w.Country),
		},
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewRejection(domain.CarrierParcel, http.StatusOK, carrier.ExtractMessage(raw, http.StatusOK))
	}
	return nil
}

func countryOrDefault(c string) string {
	if c == "" {
		return "India"
	}
	return c
}

func shippingMode(mode string) string {
	if mode == "E" {
		return "Express"
	}
	return "Surface"
}

var (
	_ domain.CarrierAdapter     = (*Adapter)(nil)
	_ domain.WarehouseRegistrar = (*Adapter)(nil)
)
