package usecase

import (
	"context"
	"errors"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"

	"github.com/shopspring/decimal"
)

// RemittanceUsecase keeps the COD remittance record of an order in step with
// its shipping status.
type RemittanceUsecase struct {
	repo     domain.RemittanceRepository
	profiles domain.UserProfileRepository
	clock    domain.Clock
}

func NewRemittanceUsecase(repo domain.RemittanceRepository, profiles domain.UserProfileRepository, clock domain.Clock) *RemittanceUsecase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &RemittanceUsecase{repo: repo, profiles: profiles, clock: clock}
}

// OnShipped opens the remittance for a freshly booked COD order.
func (u *RemittanceUsecase) OnShipped(ctx context.Context, order *domain.Order) error {
	setting, err := u.profiles.GetEarlyCODSetting(ctx, order.UserID)
	if err != nil {
		return err
	}
	if setting == "" {
		setting = domain.DefaultEarlyCODSetting
	}
	return u.repo.Create(ctx, &domain.Remittance{
		OrderID:          order.ID,
		UserID:           order.UserID,
		AWB:              order.TrackingRef(),
		CODAmount:        order.Payload.SubTotal,
		TransferedAmount: decimal.Zero,
		Deduction:        decimal.Zero,
		Status:           domain.RemittanceStatusPendingDelivery,
		EarlyCOD:         setting,
	})
}

func (u *RemittanceUsecase) OnDelivered(ctx context.Context, order *domain.Order) error {
	return u.update(ctx, order, func(r *domain.Remittance) {
		r.Status = domain.RemittanceStatusPendingRemittance
		r.Remark = "Delivered on " + u.clock.Now().Format(time.DateOnly)
	})
}

func (u *RemittanceUsecase) OnRTO(ctx context.Context, order *domain.Order) error {
	return u.update(ctx, order, func(r *domain.Remittance) {
		r.Status = domain.RemittanceStatusReturnedToOrigin
		r.TransferedAmount = decimal.Zero
		r.Deduction = decimal.Zero
	})
}

func (u *RemittanceUsecase) OnCancelledAfterShipping(ctx context.Context, order *domain.Order) error {
	return u.update(ctx, order, func(r *domain.Remittance) {
		r.Status = domain.RemittanceStatusCancelledAfterShipping
		r.TransferedAmount = decimal.Zero
		r.Deduction = decimal.Zero
	})
}

// update applies fn to the order's remittance. A missing record means the
// booking never opened one; that is logged and ignored.
func (u *RemittanceUsecase) update(ctx context.Context, order *domain.Order, fn func(*domain.Remittance)) error {
	r, err := u.repo.GetByOrderID(ctx, order.ID)
	if errors.Is(err, domain.ErrRemittanceNotFound) {
		l := logger.WithOrderID(ctx, order.ID)
		l.Warn().Msg("No remittance record for COD order, skipping update")
		return nil
	}
	if err != nil {
		return err
	}
	fn(r)
	if err := u.repo.Update(ctx, r); err != nil {
		if errors.Is(err, domain.ErrRemittanceNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// MarkRemitted records the payout of a delivered COD order.
func (u *RemittanceUsecase) MarkRemitted(ctx context.Context, orderID string, transferred, deduction decimal.Decimal, remark string) (*domain.Remittance, error) {
	if transferred.IsNegative() || deduction.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	r, err := u.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RemittanceStatusPendingRemittance {
		return nil, domain.ErrRemittanceNotPayable
	}
	r.Status = domain.RemittanceStatusRemitted
	r.TransferedAmount = transferred
	r.Deduction = deduction
	if remark != "" {
		r.Remark = remark
	} else {
		r.Remark = "Remitted on " + u.clock.Now().Format(time.DateOnly)
	}
	if err := u.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (u *RemittanceUsecase) ListByUser(ctx context.Context, userID, status string, page, limit int) ([]domain.Remittance, domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, total, err := u.repo.List(ctx, domain.RemittanceFilter{
		UserID: userID,
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, limit, total), nil
}
