// Package aggregator adapts the courier-of-couriers platform. Bookings run
// in two phases: create an order, then assign an AWB from a member courier.
package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/carrier"

	"github.com/shopspring/decimal"
)

type Config struct {
	Email       string
	Password    string
	Members     []int  // courier ids this account may book
	LogoBaseURL string // logos are served as <base>/<courier id>.png
}

type Adapter struct {
	client  *carrier.Client
	cfg     Config
	members map[int]struct{}
}

func New(client *carrier.Client, cfg Config) *Adapter {
	members := make(map[int]struct{}, len(cfg.Members))
	for _, id := range cfg.Members {
		members[id] = struct{}{}
	}
	return &Adapter{client: client, cfg: cfg, members: members}
}

func (a *Adapter) Kind() domain.CarrierKind { return domain.CarrierAggregator }

func (a *Adapter) isMember(id int) bool {
	_, ok := a.members[id]
	return ok
}

// --- Auth ---

type loginResponse struct {
	Token string `json:"token"`
}

func (a *Adapter) Login(ctx context.Context) (string, error) {
	if a.cfg.Email == "" || a.cfg.Password == "" {
		return "", domain.NewConfigurationError(domain.CarrierAggregator, "login credentials not configured")
	}
	var resp loginResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method:   http.MethodPost,
		Path:     "/v1/external/auth/login",
		JSON:     map[string]string{"email": a.cfg.Email, "password": a.cfg.Password},
		SkipAuth: true,
	}, &resp); err != nil {
		if domain.IsRejection(err) {
			return "", &domain.CarrierError{Kind: domain.CarrierErrAuth, Carrier: domain.CarrierAggregator, Message: domain.FailureMessage(err), Err: err}
		}
		return "", err
	}
	if resp.Token == "" {
		return "", &domain.CarrierError{Kind: domain.CarrierErrAuth, Carrier: domain.CarrierAggregator, Message: "login returned no token"}
	}
	return resp.Token, nil
}

// --- Quotes ---

type serviceabilityResponse struct {
	Status carrier.FlexString `json:"status"`
	Data   struct {
		Companies []struct {
			CourierCompanyID int                `json:"courier_company_id"`
			CourierName      string             `json:"courier_name"`
			Rate             float64            `json:"rate"`
			EstimatedDays    carrier.FlexString `json:"estimated_delivery_days"`
		} `json:"available_courier_companies"`
	} `json:"data"`
}

// QuoteRates returns one quote per member courier that services the lane.
func (a *Adapter) QuoteRates(ctx context.Context, req domain.QuoteRequest) ([]domain.Quote, error) {
	cod := "0"
	if req.COD {
		cod = "1"
	}
	q := url.Values{
		"pickup_postcode":   {req.OriginPincode},
		"delivery_postcode": {req.DestPincode},
		"cod":               {cod},
		"weight":            {req.Weight.String()},
		"length":            {req.Dimensions.Length.String()},
		"breadth":           {req.Dimensions.Breadth.String()},
		"height":            {req.Dimensions.Height.String()},
		"declared_value":    {req.DeclaredValue.StringFixed(2)},
	}

	var resp serviceabilityResponse
	_, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/v1/external/courier/serviceability/",
		Query:  q,
	}, &resp)
	if err != nil {
		if domain.IsRejection(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[int]struct{})
	quotes := make([]domain.Quote, 0, len(resp.Data.Companies))
	for _, c := range resp.Data.Companies {
		if !a.isMember(c.CourierCompanyID) || c.Rate <= 0 {
			continue
		}
		if _, dup := seen[c.CourierCompanyID]; dup {
			continue
		}
		seen[c.CourierCompanyID] = struct{}{}
		quotes = append(quotes, domain.Quote{
			Carrier:     domain.CarrierAggregator,
			CourierID:   c.CourierCompanyID,
			CourierName: c.CourierName,
			ETADays:     c.EstimatedDays.Int(),
			Price:       decimal.NewFromFloat(c.Rate),
			Logo:        a.logo(c.CourierCompanyID),
		})
	}
	return quotes, nil
}

func (a *Adapter) logo(id int) string {
	if a.cfg.LogoBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%d.png", strings.TrimRight(a.cfg.LogoBaseURL, "/"), id)
}

// --- Booking ---

type orderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
	HSN          string  `json:"hsn,omitempty"`
}

type createOrderPayload struct {
	OrderID           string      `json:"order_id"`
	OrderDate         string      `json:"order_date"`
	PickupLocation    string      `json:"pickup_location"`
	BillingName       string      `json:"billing_customer_name"`
	BillingLastName   string      `json:"billing_last_name"`
	BillingAddress    string      `json:"billing_address"`
	BillingAddress2   string      `json:"billing_address_2"`
	BillingCity       string      `json:"billing_city"`
	BillingPincode    string      `json:"billing_pincode"`
	BillingState      string      `json:"billing_state"`
	BillingCountry    string      `json:"billing_country"`
	BillingEmail      string      `json:"billing_email"`
	BillingPhone      string      `json:"billing_phone"`
	ShippingIsBilling bool        `json:"shipping_is_billing"`
	ShippingName      string      `json:"shipping_customer_name,omitempty"`
	ShippingAddress   string      `json:"shipping_address,omitempty"`
	ShippingAddress2  string      `json:"shipping_address_2,omitempty"`
	ShippingCity      string      `json:"shipping_city,omitempty"`
	ShippingPincode   string      `json:"shipping_pincode,omitempty"`
	ShippingState     string      `json:"shipping_state,omitempty"`
	ShippingCountry   string      `json:"shipping_country,omitempty"`
	ShippingEmail     string      `json:"shipping_email,omitempty"`
	ShippingPhone     string      `json:"shipping_phone,omitempty"`
	Items             []orderItem `json:"order_items"`
	PaymentMethod     string      `json:"payment_method"`
	SubTotal          float64     `json:"sub_total"`
	Length            float64     `json:"length"`
	Breadth           float64     `json:"breadth"`
	Height            float64     `json:"height"`
	Weight            float64     `json:"weight"`
}

type createOrderResponse struct {
	OrderID    carrier.FlexString `json:"order_id"`
	ShipmentID carrier.FlexString `json:"shipment_id"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
}

// CreateOrder is the first booking phase. The returned ids must be persisted
// before AssignAWB is attempted.
func (a *Adapter) CreateOrder(ctx context.Context, req domain.ShipmentRequest) (domain.BookingProgress, error) {
	if req.Pickup.Name == "" {
		return domain.BookingProgress{}, domain.NewRejection(domain.CarrierAggregator, 0, "pickup location is required")
	}

	payment := domain.PaymentMethodPrepaid
	if req.COD {
		payment = domain.PaymentMethodCOD
	}
	items := make([]orderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orderItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Units:        it.Units,
			SellingPrice: carrier.Float(it.SellingPrice),
			HSN:          it.HSN,
		})
	}

	first, last := splitName(req.Billing.Name)
	payload := createOrderPayload{
		OrderID:           req.OrderID,
		OrderDate:         req.OrderDate.Format("2006-01-02 15:04"),
		PickupLocation:    req.Pickup.Name,
		BillingName:       first,
		BillingLastName:   last,
		BillingAddress:    req.Billing.Line1,
		BillingAddress2:   req.Billing.Line2,
		BillingCity:       req.Billing.City,
		BillingPincode:    req.Billing.Pincode,
		BillingState:      req.Billing.State,
		BillingCountry:    countryOrDefault(req.Billing.Country),
		BillingEmail:      req.Billing.Email,
		BillingPhone:      req.Billing.Phone,
		ShippingIsBilling: req.Consignee == req.Billing,
		Items:             items,
		PaymentMethod:     payment,
		SubTotal:          carrier.Float(req.SubTotal),
		Length:            carrier.Float(req.Dimensions.Length),
		Breadth:           carrier.Float(req.Dimensions.Breadth),
		Height:            carrier.Float(req.Dimensions.Height),
		Weight:            carrier.Float(req.Weight),
	}
	if !payload.ShippingIsBilling {
		payload.ShippingName = req.Consignee.Name
		payload.ShippingAddress = req.Consignee.Line1
		payload.ShippingAddress2 = req.Consignee.Line2
		payload.ShippingCity = req.Consignee.City
		payload.ShippingPincode = req.Consignee.Pincode
		payload.ShippingState = req.Consignee.State
		payload.ShippingCountry = countryOrDefault(req.Consignee.Country)
		payload.ShippingEmail = req.Consignee.Email
		payload.ShippingPhone = req.Consignee.Phone
	}

	var resp createOrderResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/orders/create/adhoc",
		JSON:   payload,
	}, &resp)
	if err != nil {
		return domain.BookingProgress{}, err
	}
	if resp.OrderID == "" || resp.ShipmentID == "" {
		return domain.BookingProgress{}, domain.NewRejection(domain.CarrierAggregator, http.StatusOK, carrier.ExtractMessage(raw, http.StatusOK))
	}
	return domain.BookingProgress{
		Phase:             domain.BookingPhaseOrderCreated,
		ShiprocketOrderID: resp.OrderID.String(),
		ShipmentID:        resp.ShipmentID.String(),
	}, nil
}

type assignResponse struct {
	AssignStatus int `json:"awb_assign_status"`
	Response     struct {
		Data struct {
			AWBCode     carrier.FlexString `json:"awb_code"`
			CourierName string             `json:"courier_name"`
			AssignError string             `json:"awb_assign_error"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

// AssignAWB is the second booking phase: pick the member courier and obtain the AWB.
func (a *Adapter) AssignAWB(ctx context.Context, progress domain.BookingProgress, courierID int) (*domain.Booking, error) {
	if !a.isMember(courierID) {
		return nil, domain.NewRejection(domain.CarrierAggregator, 0, fmt.Sprintf("courier %d is not available on this account", courierID))
	}
	shipmentID, err := strconv.ParseInt(progress.ShipmentID, 10, 64)
	if err != nil {
		return nil, domain.NewRejection(domain.CarrierAggregator, 0, "invalid shipment id")
	}

	var resp assignResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/courier/assign/awb",
		JSON:   map[string]int64{"shipment_id": shipmentID, "courier_id": int64(courierID)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	awb := resp.Response.Data.AWBCode.String()
	if resp.AssignStatus != 1 || awb == "" {
		msg := resp.Response.Data.AssignError
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "awb not assigned"
		}
		return nil, domain.NewRejection(domain.CarrierAggregator, http.StatusOK, msg)
	}
	return &domain.Booking{
		AWB:               awb,
		ShiprocketOrderID: progress.ShiprocketOrderID,
		ShipmentID:        progress.ShipmentID,
		CourierName:       resp.Response.Data.CourierName,
		Raw:               raw,
	}, nil
}

// CreateShipment runs both phases back to back for callers that do not
// persist the intermediate ids.
func (a *Adapter) CreateShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Booking, error) {
	progress, err := a.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.AssignAWB(ctx, progress, req.CourierID)
}

func (a *Adapter) CancelShipment(ctx context.Context, req domain.CancelRequest) error {
	if req.ShiprocketOrderID != "" {
		id, err := strconv.ParseInt(req.ShiprocketOrderID, 10, 64)
		if err != nil {
			return domain.NewRejection(domain.CarrierAggregator, 0, "invalid aggregator order id")
		}
		_, err = a.client.Do(ctx, carrier.Request{
			Method: http.MethodPost,
			Path:   "/v1/external/orders/cancel",
			JSON:   map[string][]int64{"ids": {id}},
		}, nil)
		return err
	}
	if req.AWB == "" {
		return domain.NewRejection(domain.CarrierAggregator, 0, "awb is required to cancel")
	}
	_, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/orders/cancel/shipment/awbs",
		JSON:   map[string][]string{"awbs": {req.AWB}},
	}, nil)
	return err
}

// --- Tracking ---

type trackResponse struct {
	TrackingData struct {
		TrackStatus int    `json:"track_status"`
		Error       string `json:"error"`
		Track       []struct {
			CurrentStatus string `json:"current_status"`
			Origin        string `json:"origin"`
			Destination   string `json:"destination"`
			EDD           string `json:"edd"`
		} `json:"shipment_track"`
		Activities []struct {
			Date     string `json:"date"`
			Status   string `json:"status"`
			Activity string `json:"activity"`
			Location string `json:"location"`
		} `json:"shipment_track_activities"`
	} `json:"tracking_data"`
}

func (a *Adapter) TrackShipment(ctx context.Context, req domain.TrackRequest) (*domain.TrackingResult, error) {
	if req.AWB == "" {
		return nil, domain.NewRejection(domain.CarrierAggregator, 0, "awb is required to track")
	}
	var resp trackResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodGet,
		Path:   "/v1/external/courier/track/awb/" + url.PathEscape(req.AWB),
	}, &resp); err != nil {
		return nil, err
	}
	td := resp.TrackingData
	if len(td.Track) == 0 {
		msg := td.Error
		if msg == "" {
			msg = "no tracking data"
		}
		return nil, domain.NewRejection(domain.CarrierAggregator, http.StatusOK, msg)
	}

	cur := td.Track[0]
	result := &domain.TrackingResult{
		Status:      MapStatus(cur.CurrentStatus),
		RawStatus:   cur.CurrentStatus,
		Origin:      cur.Origin,
		Destination: cur.Destination,
		Activities:  make([]domain.TrackingActivity, 0, len(td.Activities)),
	}
	if t, ok := carrier.ParseTime(cur.EDD); ok {
		result.ExpectedDate = &t
	}
	for _, act := range td.Activities {
		at, _ := carrier.ParseTime(act.Date)
		result.Activities = append(result.Activities, domain.TrackingActivity{
			At:       at,
			Status:   act.Status,
			Location: act.Location,
			Detail:   act.Activity,
		})
	}
	return result, nil
}

var statusTable = map[string]domain.TrackingStatus{
	"AWB ASSIGNED":                  domain.TrackingManifested,
	"READY TO SHIP":                 domain.TrackingManifested,
	"PICKUP SCHEDULED":              domain.TrackingManifested,
	"PICKUP GENERATED":              domain.TrackingManifested,
	"PICKUP QUEUED":                 domain.TrackingManifested,
	"MANIFEST GENERATED":            domain.TrackingManifested,
	"OUT FOR PICKUP":                domain.TrackingManifested,
	"PICKED UP":                     domain.TrackingPicked,
	"SHIPPED":                       domain.TrackingInTransit,
	"IN TRANSIT":                    domain.TrackingInTransit,
	"IN TRANSIT-AT DESTINATION HUB": domain.TrackingInTransit,
	"REACHED AT DESTINATION HUB":    domain.TrackingInTransit,
	"OUT FOR DELIVERY":              domain.TrackingInTransit,
	"UNDELIVERED":                   domain.TrackingInTransit,
	"DELAYED":                       domain.TrackingInTransit,
	"DELIVERED":                     domain.TrackingDelivered,
	"RTO INITIATED":                 domain.TrackingRTO,
	"RTO IN TRANSIT":                domain.TrackingRTO,
	"RTO DELIVERED":                 domain.TrackingRTO,
	"RTO ACKNOWLEDGED":              domain.TrackingRTO,
	"LOST":                          domain.TrackingLost,
	"CANCELED":                      domain.TrackingCancelled,
	"CANCELLED":                     domain.TrackingCancelled,
}

// MapStatus collapses an aggregator status string; anything else is UNKNOWN.
func MapStatus(status string) domain.TrackingStatus {
	if s, ok := statusTable[strings.ToUpper(strings.TrimSpace(status))]; ok {
		return s
	}
	return domain.TrackingUnknown
}

// --- Pickup ---

type pickupResponse struct {
	PickupStatus int `json:"pickup_status"`
	Response     struct {
		ScheduledDate string             `json:"pickup_scheduled_date"`
		Token         carrier.FlexString `json:"pickup_token_number"`
		Data          string             `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

func (a *Adapter) RequestPickup(ctx context.Context, req domain.PickupRequest) (*domain.Pickup, error) {
	shipmentID, err := strconv.ParseInt(req.ShipmentID, 10, 64)
	if err != nil {
		return nil, domain.NewRejection(domain.CarrierAggregator, 0, "shipment id is required for pickup")
	}
	var resp pickupResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/courier/generate/pickup",
		JSON:   map[string][]int64{"shipment_id": {shipmentID}},
	}, &resp); err != nil {
		return nil, err
	}
	if resp.PickupStatus != 1 {
		msg := resp.Message
		if msg == "" {
			msg = "pickup not scheduled"
		}
		return nil, domain.NewRejection(domain.CarrierAggregator, http.StatusOK, msg)
	}

	id := strings.TrimSpace(strings.TrimPrefix(resp.Response.Token.String(), "Reference No:"))
	if id == "" {
		id = req.ShipmentID
	}
	scheduled := req.At
	if t, ok := carrier.ParseTime(resp.Response.ScheduledDate); ok {
		scheduled = t
	}
	return &domain.Pickup{PickupID: id, ScheduledFor: scheduled}, nil
}

// --- Labels ---

type labelResponse struct {
	LabelCreated int    `json:"label_created"`
	LabelURL     string `json:"label_url"`
	Response     string `json:"response"`
}

func (a *Adapter) GenerateLabel(ctx context.Context, req domain.LabelRequest) (*domain.Label, error) {
	shipmentID, err := strconv.ParseInt(req.ShipmentID, 10, 64)
	if err != nil {
		return nil, domain.NewRejection(domain.CarrierAggregator, 0, "shipment id is required for a label")
	}
	var resp labelResponse
	if _, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/courier/generate/label",
		JSON:   map[string][]int64{"shipment_id": {shipmentID}},
	}, &resp); err != nil {
		return nil, err
	}
	if resp.LabelCreated != 1 || resp.LabelURL == "" {
		msg := resp.Response
		if msg == "" {
			msg = "label not created"
		}
		return nil, domain.NewRejection(domain.CarrierAggregator, http.StatusOK, msg)
	}
	return &domain.Label{URL: resp.LabelURL}, nil
}

// --- Warehouses ---

type addPickupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *Adapter) RegisterWarehouse(ctx context.Context, w domain.Warehouse) error {
	var resp addPickupResponse
	raw, err := a.client.Do(ctx, carrier.Request{
		Method: http.MethodPost,
		Path:   "/v1/external/settings/company/addpickup",
		JSON: map[string]string{
			"pickup_location": w.Name,
			"name":            w.ContactName,
			"email":           w.Email,
			"phone":           w.Phone,
			"address":         w.Address,
			"city":            w.City,
			"state":           w.State,
			"country":         countryOrDefault(w.Country),
			"pin_code":        w.Pincode,
		},
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewRejection(domain.CarrierAggregator, http.StatusOK, carrier.ExtractMessage(raw, http.StatusOK))
	}
	return nil
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

func countryOrDefault(c string) string {
	if c == "" {
		return "India"
	}
	return c
}

var (
	_ domain.CarrierAdapter     = (*Adapter)(nil)
	_ domain.TwoPhaseBooker     = (*Adapter)(nil)
	_ domain.WarehouseRegistrar = (*Adapter)(nil)
)
