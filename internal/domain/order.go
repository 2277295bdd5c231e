package domain

//go:generate mockgen -destination=mocks/order_mock.go -package=mocks shipwise-backend/internal/domain EventPublisher,LabelArchiver

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderFilter struct {
	Limit  int
	Offset int
	UserID string
	Status OrderStatus
}

// --- Order Entities ---

type Order struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"orderId"` // business id from the storefront
	UserID            string          `json:"userId"`
	Status            OrderStatus     `json:"currentStatus"`
	CourierID         *int            `json:"courierId"`
	CourierCharges    decimal.Decimal `json:"courierCharges"`
	AWB               string          `json:"awbId,omitempty"`
	LRN               string          `json:"lrnum,omitempty"`
	ShipmentID        string          `json:"shipmentId,omitempty"`
	ShiprocketOrderID string          `json:"shiprocketOrderId,omitempty"`
	BookingPhase      string          `json:"bookingPhase,omitempty"`
	PickupLocation    string          `json:"pickupLocation"`
	PickupRequestID   string          `json:"pickupRequestId,omitempty"`
	LabelURL          string          `json:"labelUrl,omitempty"`
	LabelJobID        string          `json:"labelJobId,omitempty"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	WalletError       string          `json:"walletError,omitempty"`
	RefundError       string          `json:"refundError,omitempty"`
	UnbilledAWB       string          `json:"unbilledAwb,omitempty"`
	Payload           OrderPayload    `json:"payload"`
	BookingClaimedAt  *time.Time      `json:"-"`
	// CarrierCancelledAt is set once the carrier has confirmed the cancel.
	CarrierCancelledAt *time.Time `json:"carrierCancelledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// OrderPayload is the serialized shipment description written by the storefront.
type OrderPayload struct {
	OrderID       string          `json:"order_id"`
	OrderDate     string          `json:"order_date"`
	PaymentMethod string          `json:"payment_method"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	Weight        decimal.Decimal `json:"weight"` // kg
	Length        decimal.Decimal `json:"length"` // cm
	Breadth       decimal.Decimal `json:"breadth"`
	Height        decimal.Decimal `json:"height"`
	Billing       Address         `json:"billing"`
	Shipping      *Address        `json:"shipping,omitempty"`
	Items         []LineItem      `json:"order_items"`
}

type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Line1   string `json:"address"`
	Line2   string `json:"address_2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

type LineItem struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Units        int             `json:"units"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	HSN          string          `json:"hsn"`
}

// IsCOD reports whether the consignee pays on delivery.
func (o *Order) IsCOD() bool {
	return strings.EqualFold(strings.TrimSpace(o.Payload.PaymentMethod), PaymentMethodCOD)
}

// IsBooked reports whether a carrier has issued a tracking reference.
func (o *Order) IsBooked() bool {
	return o.AWB != "" || o.LRN != ""
}

// TrackingRef returns the reference used to poll the carrier.
func (o *Order) TrackingRef() string {
	if o.AWB != "" {
		return o.AWB
	}
	return o.LRN
}

// Consignee returns the delivery address, falling back to billing.
func (p OrderPayload) Consignee() Address {
	if p.Shipping != nil && p.Shipping.Pincode != "" {
		return *p.Shipping
	}
	return p.Billing
}

// BookingProgress returns the persisted intermediate state of a two-phase booking.
func (o *Order) BookingProgress() BookingProgress {
	return BookingProgress{
		Phase:             o.BookingPhase,
		ShiprocketOrderID: o.ShiprocketOrderID,
		ShipmentID:        o.ShipmentID,
	}
}

// OrderStatusChange is the notification emitted when the storefront (or this
// service) moves an order between statuses.
type OrderStatusChange struct {
	OrderID string      `json:"orderId"`
	Before  OrderStatus `json:"before"`
	After   OrderStatus `json:"after"`
}

type OrderHistory struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"orderId"`
	PreviousStatus *OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus  `json:"newStatus"`
	Reason         *string      `json:"reason"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// --- Interfaces ---

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByAWB(ctx context.Context, awb string) (*Order, error)
	GetByLRN(ctx context.Context, lrn string) (*Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, error)

	// CompareAndSetStatus moves the order only if it is still in `from`.
	// Returns ErrStatusConflict otherwise.
	CompareAndSetStatus(ctx context.Context, id string, from, to OrderStatus) error
	// ClaimBooking marks the order as being booked unless it is already booked
	// or another claim younger than staleAfter exists.
	ClaimBooking(ctx context.Context, id string, staleAfter time.Duration) (bool, error)
	// Update writes the courier, booking-phase, pickup and error fields of the
	// order. Tracking references, labels, the carrier cancel mark and the
	// status each have their own narrow write.
	Update(ctx context.Context, order *Order) error
	// SaveBooking stores the carrier references of a completed booking, but
	// only while the order is still READY TO SHIP and unbooked. Returns
	// ErrStatusConflict otherwise.
	SaveBooking(ctx context.Context, order *Order) error
	// SetLabel fills the label columns that are still empty.
	SetLabel(ctx context.Context, id, jobID, labelURL string) error
	// MarkCarrierCancelled records the carrier cancel once; later calls keep
	// the first timestamp.
	MarkCarrierCancelled(ctx context.Context, id string, at time.Time) error
	// SetLabelByLRN stores a label URL for the order with the given LRN. It
	// reports false when no order was changed.
	SetLabelByLRN(ctx context.Context, lrn, jobID, labelURL string) (bool, error)
	// ListTrackable returns non-terminal orders that carry a tracking reference.
	ListTrackable(ctx context.Context, limit int) ([]Order, error)

	CreateOrderHistory(ctx context.Context, history *OrderHistory) error
	GetOrderHistory(ctx context.Context, orderID string) ([]OrderHistory, error)
}

// EventPublisher fans status changes out to other services.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, change OrderStatusChange) error
}

// LabelArchiver copies a carrier-hosted label into our own storage.
type LabelArchiver interface {
	ArchiveLabel(ctx context.Context, key, sourceURL string) (string, error)
}
