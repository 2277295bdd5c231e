package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shipwise-backend/internal/domain"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_id, user_id, current_status, courier_id, courier_charges,
	COALESCE(awb_id, ''), COALESCE(lrnum, ''), shipment_id, shiprocket_order_id, booking_phase,
	pickup_location, pickup_request_id, label_url, label_job_id, error_message, wallet_error,
	refund_error, unbilled_awb, payload, booking_claimed_at, carrier_cancelled_at, created_at, updated_at`

// --- Mappers ---

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		status    string
		courierID pgtype.Int4
		charges   pgtype.Numeric
		payload   []byte
		claimedAt pgtype.Timestamptz
		cancelAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID, &status, &courierID, &charges,
		&o.AWB, &o.LRN, &o.ShipmentID, &o.ShiprocketOrderID, &o.BookingPhase,
		&o.PickupLocation, &o.PickupRequestID, &o.LabelURL, &o.LabelJobID, &o.ErrorMessage, &o.WalletError,
		&o.RefundError, &o.UnbilledAWB, &payload, &claimedAt, &cancelAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.CourierID = int4ToIntPtr(courierID)
	o.CourierCharges = numericToDecimal(charges)
	o.BookingClaimedAt = pgtimeToTimePtr(claimedAt)
	o.CarrierCancelledAt = pgtimeToTimePtr(cancelAt)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &o.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func (r *orderRepository) getBy(ctx context.Context, column, value string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1`
	return scanOrder(conn(ctx, r.db).QueryRow(ctx, q, value))
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, "id", id)
}

func (r *orderRepository) GetByAWB(ctx context.Context, awb string) (*domain.Order, error) {
	return r.getBy(ctx, "awb_id", awb)
}

func (r *orderRepository) GetByLRN(ctx context.Context, lrn string) (*domain.Order, error) {
	return r.getBy(ctx, "lrnum", lrn)
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("current_status = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, filter.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.queryOrders(ctx, q, args...)
}

func (r *orderRepository) queryOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE orders SET current_status = $3, updated_at = now() WHERE id = $1 AND current_status = $2`,
		id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrStatusConflict
}

func (r *orderRepository) ClaimBooking(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET booking_claimed_at = now(), updated_at = now()
		WHERE id = $1
		  AND awb_id IS NULL AND lrnum IS NULL
		  AND (booking_claimed_at IS NULL OR booking_claimed_at < now() - ($2 * interval '1 second'))`,
		id, staleAfter.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET
			courier_id = $2,
			courier_charges = $3,
			shipment_id = $4,
			shiprocket_order_id = $5,
			booking_phase = $6,
			pickup_request_id = $7,
			error_message = $8,
			wallet_error = $9,
			refund_error = $10,
			unbilled_awb = $11,
			booking_claimed_at = $12,
			updated_at = now()
		WHERE id = $1`,
		o.ID, intPtrToInt4(o.CourierID), decimalToNumeric(o.CourierCharges),
		o.ShipmentID, o.ShiprocketOrderID, o.BookingPhase, o.PickupRequestID,
		o.ErrorMessage, o.WalletError, o.RefundError, o.UnbilledAWB,
		timePtrToPgtime(o.BookingClaimedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// SaveBooking is the compare-and-set that publishes a booking: a cancel that
// won the race leaves the row untouched.
func (r *orderRepository) SaveBooking(ctx context.Context, o *domain.Order) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET
			awb_id = NULLIF($3, ''),
			lrnum = NULLIF($4, ''),
			shipment_id = $5,
			shiprocket_order_id = $6,
			booking_phase = $7,
			error_message = '',
			wallet_error = '',
			unbilled_awb = '',
			booking_claimed_at = NULL,
			updated_at = now()
		WHERE id = $1 AND current_status = $2
		  AND awb_id IS NULL AND lrnum IS NULL`,
		o.ID, string(domain.OrderStatusReadyToShip), o.AWB, o.LRN,
		o.ShipmentID, o.ShiprocketOrderID, o.BookingPhase,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) SetLabel(ctx context.Context, id, jobID, labelURL string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET
			label_job_id = CASE WHEN label_job_id = '' THEN $2 ELSE label_job_id END,
			label_url = CASE WHEN label_url = '' THEN $3 ELSE label_url END,
			updated_at = now()
		WHERE id = $1`,
		id, jobID, labelURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) MarkCarrierCancelled(ctx context.Context, id string, at time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET carrier_cancelled_at = $2, updated_at = now()
		WHERE id = $1 AND carrier_cancelled_at IS NULL`,
		id, at)
	return err
}

func (r *orderRepository) SetLabelByLRN(ctx context.Context, lrn, jobID, labelURL string) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET
			label_url = $3,
			label_job_id = COALESCE(NULLIF($2, ''), label_job_id),
			updated_at = now()
		WHERE lrnum = $1 AND label_url IS DISTINCT FROM $3`,
		lrn, jobID, labelURL)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *orderRepository) ListTrackable(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 500
	}
	q := `SELECT ` + orderColumns + ` FROM orders
		WHERE current_status NOT IN ($1, $2, $3, $4)
		  AND (awb_id IS NOT NULL OR lrnum IS NOT NULL)
		ORDER BY updated_at ASC
		LIMIT $5`
	return r.queryOrders(ctx, q,
		string(domain.OrderStatusDelivered), string(domain.OrderStatusCancelled),
		string(domain.OrderStatusRTO), string(domain.OrderStatusLost), limit)
}

// --- History ---

func (r *orderRepository) CreateOrderHistory(ctx context.Context, h *domain.OrderHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	var prev pgtype.Text
	if h.PreviousStatus != nil {
		prev = pgtype.Text{String: string(*h.PreviousStatus), Valid: true}
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO order_history (id, order_id, previous_status, new_status, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		h.ID, h.OrderID, prev, string(h.NewStatus), stringPtrToText(h.Reason),
	).Scan(&h.CreatedAt)
}

func (r *orderRepository) GetOrderHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, order_id, previous_status, new_status, reason, created_at
		FROM order_history WHERE order_id = $1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.OrderHistory
	for rows.Next() {
		var (
			h      domain.OrderHistory
			prev   pgtype.Text
			next   string
			reason pgtype.Text
		)
		if err := rows.Scan(&h.ID, &h.OrderID, &prev, &next, &reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			s := domain.OrderStatus(prev.String)
			h.PreviousStatus = &s
		}
		h.NewStatus = domain.OrderStatus(next)
		h.Reason = textToStringPtr(reason)
		history = append(history, h)
	}
	return history, rows.Err()
}
