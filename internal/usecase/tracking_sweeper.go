package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

type SweepConfig struct {
	Interval    time.Duration
	Concurrency int
	BatchSize   int
	// OrderTimeout bounds the carrier call plus status write for one order.
	OrderTimeout time.Duration
}

type SweepReport struct {
	Checked int64 `json:"checked"`
	Updated int64 `json:"updated"`
	Failed  int64 `json:"failed"`
}

// TrackingSweeper periodically polls carriers for every in-flight order and
// feeds the results into ShipmentUsecase.ApplyTracking.
type TrackingSweeper struct {
	orders    domain.OrderRepository
	shipments *ShipmentUsecase
	cfg       SweepConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTrackingSweeper(orders domain.OrderRepository, shipments *ShipmentUsecase, cfg SweepConfig) *TrackingSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = time.Minute
	}
	return &TrackingSweeper{orders: orders, shipments: shipments, cfg: cfg}
}

// RunOnce sweeps every trackable order once. Per-order failures are counted
// and logged; only a failure to list orders is returned.
func (s *TrackingSweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	log := logger.WithComponent("tracking_sweeper")
	start := time.Now()
	defer func() { metrics.SweepDurationSeconds.Observe(time.Since(start).Seconds()) }()

	orders, err := s.orders.ListTrackable(ctx, s.cfg.BatchSize)
	if err != nil {
		return SweepReport{}, err
	}

	var checked, updated, failed atomic.Int64
	seen := make(map[string]struct{}, len(orders))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range orders {
		order := &orders[i]
		if _, dup := seen[order.ID]; dup {
			continue
		}
		seen[order.ID] = struct{}{}

		g.Go(func() error {
			checked.Add(1)
			changed, err := s.sweepOrder(ctx, order)
			switch {
			case err != nil:
				failed.Add(1)
				metrics.SweepOrdersTotal.WithLabelValues("failed").Inc()
				log.Warn().Err(err).Str("order_id", order.ID).Str("awb", order.TrackingRef()).Msg("Tracking poll failed")
			case changed:
				updated.Add(1)
				metrics.SweepOrdersTotal.WithLabelValues("updated").Inc()
			default:
				metrics.SweepOrdersTotal.WithLabelValues("unchanged").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := SweepReport{Checked: checked.Load(), Updated: updated.Load(), Failed: failed.Load()}
	log.Info().
		Int64("checked", report.Checked).
		Int64("updated", report.Updated).
		Int64("failed", report.Failed).
		Dur("took", time.Since(start)).
		Msg("Tracking sweep finished")
	return report, nil
}

func (s *TrackingSweeper) sweepOrder(ctx context.Context, order *domain.Order) (changed bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			changed = false
			err = panicError{p}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OrderTimeout)
	defer cancel()

	result, err := s.shipments.trackOrder(ctx, order)
	if err != nil {
		return false, err
	}
	return s.shipments.ApplyTracking(ctx, order, result)
}

// Start runs a sweep every Interval until Shutdown.
func (s *TrackingSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := logger.WithComponent("tracking_sweeper")

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					log.Error().Err(err).Msg("Tracking sweep failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
func (s *TrackingSweeper) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic while sweeping order: %v", p.v) }
