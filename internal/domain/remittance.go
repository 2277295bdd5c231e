package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Remittance tracks the cash collected on delivery of a COD order until it
// is paid out to the merchant. Keyed by the order's internal id.
type Remittance struct {
	OrderID          string          `json:"orderId"`
	UserID           string          `json:"userId"`
	AWB              string          `json:"awb"`
	CODAmount        decimal.Decimal `json:"codAmount"`
	TransferedAmount decimal.Decimal `json:"transferedAmount"`
	Deduction        decimal.Decimal `json:"deduction"`
	Status           string          `json:"status"`
	Remark           string          `json:"remark"`
	EarlyCOD         string          `json:"earlyCod"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type RemittanceFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

type RemittanceRepository interface {
	// Create inserts the remittance; an existing row for the order is left untouched.
	Create(ctx context.Context, r *Remittance) error
	GetByOrderID(ctx context.Context, orderID string) (*Remittance, error)
	// Update returns ErrRemittanceNotFound when no row exists for the order.
	Update(ctx context.Context, r *Remittance) error
	List(ctx context.Context, filter RemittanceFilter) ([]Remittance, int64, error)
}
