package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
)

type WarehouseUsecase struct {
	repo    domain.WarehouseRepository
	router  domain.CourierRouter
	clock   domain.Clock
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewWarehouseUsecase(repo domain.WarehouseRepository, router domain.CourierRouter, timeout time.Duration) *WarehouseUsecase {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &WarehouseUsecase{repo: repo, router: router, clock: domain.SystemClock{}, timeout: timeout}
}

// Create stores the warehouse and registers it with every carrier that needs
// pickup locations on file. Registration runs in the background and its
// outcome is written back per carrier.
func (u *WarehouseUsecase) Create(ctx context.Context, w *domain.Warehouse) error {
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" || w.Pincode == "" {
		return domain.ErrInvalidWarehouse
	}
	if w.Country == "" {
		w.Country = "India"
	}
	if err := u.repo.Create(ctx, w); err != nil {
		return err
	}

	snapshot := *w
	for _, a := range u.router.Adapters() {
		reg, ok := a.(domain.WarehouseRegistrar)
		if !ok {
			continue
		}
		u.wg.Add(1)
		go u.register(a.Kind(), reg, snapshot)
	}
	return nil
}

func (u *WarehouseUsecase) register(kind domain.CarrierKind, reg domain.WarehouseRegistrar, w domain.Warehouse) {
	defer u.wg.Done()
	log := logger.WithComponent("warehouse_registration").With().
		Str("carrier", string(kind)).
		Str("warehouse", w.Name).
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	result := domain.Registration{OK: true}
	if err := reg.RegisterWarehouse(ctx, w); err != nil {
		log.Warn().Err(err).Msg("Warehouse registration failed")
		result = domain.Registration{Error: domain.FailureMessage(err)}
	} else {
		log.Info().Msg("Warehouse registered")
	}
	result.UpdatedAt = u.clock.Now()

	if err := u.repo.SetRegistration(ctx, w.ID, kind, result); err != nil {
		log.Error().Err(err).Msg("Failed to store registration outcome")
	}
}

func (u *WarehouseUsecase) GetByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	return u.repo.GetByName(ctx, name)
}

// Wait blocks until background registrations finish.
func (u *WarehouseUsecase) Wait() {
	u.wg.Wait()
}
