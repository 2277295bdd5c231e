package domain

//go:generate mockgen -source=carrier.go -destination=mocks/carrier_mock.go -package=mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CarrierKind identifies one of the external carrier integrations.
type CarrierKind string

const (
	CarrierParcel     CarrierKind = "parcel"     // B2C parcel carrier, API-key auth
	CarrierFreight    CarrierKind = "freight"    // B2B/LTL carrier, bearer token auth
	CarrierAggregator CarrierKind = "aggregator" // courier-of-couriers, bearer token auth
)

// TrackingStatus is the canonical status every carrier vocabulary collapses into.
type TrackingStatus string

const (
	TrackingManifested TrackingStatus = "MANIFESTED"
	TrackingPicked     TrackingStatus = "PICKED"
	TrackingInTransit  TrackingStatus = "IN_TRANSIT"
	TrackingDelivered  TrackingStatus = "DELIVERED"
	TrackingRTO        TrackingStatus = "RTO"
	TrackingLost       TrackingStatus = "LOST"
	TrackingCancelled  TrackingStatus = "CANCELLED"
	TrackingUnknown    TrackingStatus = "UNKNOWN"
)

// OrderStatus maps a canonical tracking status onto the order lifecycle.
// The second result is false when the status should not move the order.
func (s TrackingStatus) OrderStatus() (OrderStatus, bool) {
	switch s {
	case TrackingManifested:
		return OrderStatusManifested, true
	case TrackingPicked, TrackingInTransit:
		return OrderStatusInTransit, true
	case TrackingDelivered:
		return OrderStatusDelivered, true
	case TrackingRTO:
		return OrderStatusRTO, true
	case TrackingLost:
		return OrderStatusLost, true
	case TrackingCancelled:
		return OrderStatusCancelled, true
	}
	return "", false
}

type Dimensions struct {
	Length  decimal.Decimal `json:"length"`
	Breadth decimal.Decimal `json:"breadth"`
	Height  decimal.Decimal `json:"height"`
}

// QuoteRequest is the canonical rate query. Weight is in kilograms, dimensions in centimetres.
type QuoteRequest struct {
	OriginPincode string          `json:"originPincode"`
	DestPincode   string          `json:"destPincode"`
	COD           bool            `json:"cod"`
	Weight        decimal.Decimal `json:"weight"`
	Dimensions    Dimensions      `json:"dimensions"`
	DeclaredValue decimal.Decimal `json:"declaredValue"`
}

type Quote struct {
	Carrier     CarrierKind     `json:"carrier"`
	CourierID   int             `json:"courierId"`
	CourierName string          `json:"courierName"`
	ETADays     int             `json:"etaDays"`
	Price       decimal.Decimal `json:"price"`
	Logo        string          `json:"logo,omitempty"`
}

// ShipmentRequest is the canonical booking request built from an order.
type ShipmentRequest struct {
	OrderRef      string // internal order id
	OrderID       string // business order id
	OrderDate     time.Time
	CourierID     int
	PaymentMethod string
	COD           bool
	CODAmount     decimal.Decimal
	SubTotal      decimal.Decimal
	Weight        decimal.Decimal // kg
	Dimensions    Dimensions
	Pickup        Warehouse
	Billing       Address
	Consignee     Address
	Items         []LineItem
}

// BookingProgress is the persisted state between the two phases of an
// aggregator booking.
type BookingProgress struct {
	Phase             string
	ShiprocketOrderID string
	ShipmentID        string
}

type Booking struct {
	AWB               string
	LRN               string
	ShiprocketOrderID string
	ShipmentID        string
	CourierName       string
	Raw               []byte // carrier response body; never logged or returned to callers
}

type CancelRequest struct {
	AWB               string
	LRN               string
	ShiprocketOrderID string
}

type TrackRequest struct {
	AWB string
	LRN string
}

type TrackingActivity struct {
	At       time.Time `json:"at"`
	Status   string    `json:"status"`
	Location string    `json:"location,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

type TrackingResult struct {
	Status       TrackingStatus     `json:"currentStatus"`
	RawStatus    string             `json:"rawStatus"`
	Activities   []TrackingActivity `json:"activities"`
	Origin       string             `json:"origin,omitempty"`
	Destination  string             `json:"destination,omitempty"`
	ExpectedDate *time.Time         `json:"expectedDate,omitempty"`
}

type PickupRequest struct {
	AWB        string
	LRN        string
	ShipmentID string
	Warehouse  Warehouse
	At         time.Time
	Packages   int
}

type Pickup struct {
	PickupID     string    `json:"pickupId"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

type LabelRequest struct {
	AWB        string
	LRN        string
	ShipmentID string
}

// Label is either a ready URL or a pending job whose URL arrives by webhook.
type Label struct {
	URL     string `json:"labelUrl,omitempty"`
	JobID   string `json:"jobId,omitempty"`
	Pending bool   `json:"pending"`
}

// CarrierAdapter translates canonical requests into one carrier's API.
//
// QuoteRates returns an empty slice when the carrier has no rate for the lane;
// errors are reserved for transport, auth and configuration failures.
type CarrierAdapter interface {
	Kind() CarrierKind
	QuoteRates(ctx context.Context, req QuoteRequest) ([]Quote, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Booking, error)
	CancelShipment(ctx context.Context, req CancelRequest) error
	TrackShipment(ctx context.Context, req TrackRequest) (*TrackingResult, error)
	RequestPickup(ctx context.Context, req PickupRequest) (*Pickup, error)
	GenerateLabel(ctx context.Context, req LabelRequest) (*Label, error)
}

// TwoPhaseBooker is implemented by carriers that book in two calls so the
// caller can persist the intermediate ids between them.
type TwoPhaseBooker interface {
	CreateOrder(ctx context.Context, req ShipmentRequest) (BookingProgress, error)
	AssignAWB(ctx context.Context, progress BookingProgress, courierID int) (*Booking, error)
}

// WarehouseRegistrar is implemented by carriers that need pickup locations
// registered on their side before the first booking.
type WarehouseRegistrar interface {
	RegisterWarehouse(ctx context.Context, w Warehouse) error
}

// LabelWebhook is the freight carrier's label-ready callback.
type LabelWebhook struct {
	Status  string `json:"status"`
	LRN     string `json:"lrn"`
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	PDFURL  string `json:"pdf_url"`
}
