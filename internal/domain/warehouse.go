package domain

import (
	"context"
	"time"
)

// Warehouse is a merchant pickup location. Name is the reference orders
// carry in pickup_location.
type Warehouse struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"userId"`
	Name          string                  `json:"name"`
	ContactName   string                  `json:"contactName"`
	Phone         string                  `json:"phone"`
	Email         string                  `json:"email"`
	Address       string                  `json:"address"`
	City          string                  `json:"city"`
	State         string                  `json:"state"`
	Pincode       string                  `json:"pincode"`
	Country       string                  `json:"country"`
	GSTIN         string                  `json:"gstin,omitempty"`
	Registrations map[string]Registration `json:"registrations"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// Registration is the outcome of registering a warehouse with one carrier.
type Registration struct {
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type WarehouseRepository interface {
	Create(ctx context.Context, w *Warehouse) error
	GetByName(ctx context.Context, name string) (*Warehouse, error)
	SetRegistration(ctx context.Context, warehouseID string, carrier CarrierKind, reg Registration) error
}
