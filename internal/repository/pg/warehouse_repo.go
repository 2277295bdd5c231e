package pg

import (
	"context"
	"errors"

	"shipwise-backend/internal/domain"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type warehouseRepository struct {
	db DB
}

func NewWarehouseRepository(db DB) domain.WarehouseRepository {
	return &warehouseRepository{db: db}
}

func (r *warehouseRepository) Create(ctx context.Context, w *domain.Warehouse) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO warehouses (id, user_id, name, contact_name, phone, email, address, city, state, pincode, country, gstin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		w.ID, w.UserID, w.Name, w.ContactName, w.Phone, w.Email, w.Address,
		w.City, w.State, w.Pincode, w.Country, w.GSTIN,
	).Scan(&w.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrWarehouseExists
	}
	return err
}

func (r *warehouseRepository) GetByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	var (
		w    domain.Warehouse
		regs []byte
	)
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, name, contact_name, phone, email, address, city, state, pincode, country, gstin,
			registrations, created_at
		FROM warehouses WHERE name = $1`, name,
	).Scan(&w.ID, &w.UserID, &w.Name, &w.ContactName, &w.Phone, &w.Email, &w.Address,
		&w.City, &w.State, &w.Pincode, &w.Country, &w.GSTIN, &regs, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWarehouseNotFound
		}
		return nil, err
	}
	if len(regs) > 0 {
		if err := json.Unmarshal(regs, &w.Registrations); err != nil {
			return nil, err
		}
	}
	return &w, nil
}

func (r *warehouseRepository) SetRegistration(ctx context.Context, warehouseID string, carrier domain.CarrierKind, reg domain.Registration) error {
	doc, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE warehouses
		SET registrations = registrations || jsonb_build_object($2::text, $3::jsonb)
		WHERE id = $1`, warehouseID, string(carrier), doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWarehouseNotFound
	}
	return nil
}
