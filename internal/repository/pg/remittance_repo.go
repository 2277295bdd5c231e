package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shipwise-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type remittanceRepository struct {
	db DB
}

func NewRemittanceRepository(db DB) domain.RemittanceRepository {
	return &remittanceRepository{db: db}
}

const remittanceColumns = `order_id, user_id, awb, cod_amount, transfered_amount, deduction,
	status, remark, early_cod, created_at, updated_at`

func scanRemittance(row pgx.Row) (*domain.Remittance, error) {
	var (
		rm                          domain.Remittance
		cod, transferred, deduction pgtype.Numeric
	)
	err := row.Scan(&rm.OrderID, &rm.UserID, &rm.AWB, &cod, &transferred, &deduction,
		&rm.Status, &rm.Remark, &rm.EarlyCOD, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRemittanceNotFound
		}
		return nil, err
	}
	rm.CODAmount = numericToDecimal(cod)
	rm.TransferedAmount = numericToDecimal(transferred)
	rm.Deduction = numericToDecimal(deduction)
	return &rm, nil
}

func (r *remittanceRepository) Create(ctx context.Context, rm *domain.Remittance) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO remittances (order_id, user_id, awb, cod_amount, transfered_amount, deduction, status, remark, early_cod)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO NOTHING`,
		rm.OrderID, rm.UserID, rm.AWB, decimalToNumeric(rm.CODAmount), decimalToNumeric(rm.TransferedAmount),
		decimalToNumeric(rm.Deduction), rm.Status, rm.Remark, rm.EarlyCOD)
	return err
}

func (r *remittanceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Remittance, error) {
	return scanRemittance(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+remittanceColumns+` FROM remittances WHERE order_id = $1`, orderID))
}

func (r *remittanceRepository) Update(ctx context.Context, rm *domain.Remittance) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE remittances SET
			awb = $2, cod_amount = $3, transfered_amount = $4, deduction = $5,
			status = $6, remark = $7, updated_at = now()
		WHERE order_id = $1`,
		rm.OrderID, rm.AWB, decimalToNumeric(rm.CODAmount), decimalToNumeric(rm.TransferedAmount),
		decimalToNumeric(rm.Deduction), rm.Status, rm.Remark)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRemittanceNotFound
	}
	return nil
}

func (r *remittanceRepository) List(ctx context.Context, filter domain.RemittanceFilter) ([]domain.Remittance, int64, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM remittances`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	q := `SELECT ` + remittanceColumns + ` FROM remittances` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Remittance
	for rows.Next() {
		rm, err := scanRemittance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rm)
	}
	return out, total, rows.Err()
}
