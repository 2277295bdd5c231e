package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/cache"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RateOption is one ranked courier offer.
type RateOption struct {
	CourierID     int             `json:"courier_company_id"`
	CourierName   string          `json:"courier_name"`
	EstimatedDays int             `json:"estimated_delivery_days"`
	Rate          decimal.Decimal `json:"rate"`
	Logo          string          `json:"logo"`
}

type RateConfig struct {
	// Markups multiply the raw carrier rate per carrier kind. A missing kind
	// is quoted at cost.
	Markups    map[domain.CarrierKind]decimal.Decimal
	B2BMarkups map[domain.CarrierKind]decimal.Decimal
	// B2BCarriers are the adapters asked for B2B quotes.
	B2BCarriers []domain.CarrierKind
	CacheTTL    time.Duration
	MaxParallel int
}

type RateUsecase struct {
	router domain.CourierRouter
	cache  cache.CacheService
	cfg    RateConfig
}

func NewRateUsecase(router domain.CourierRouter, c cache.CacheService, cfg RateConfig) *RateUsecase {
	if len(cfg.B2BCarriers) == 0 {
		cfg.B2BCarriers = []domain.CarrierKind{domain.CarrierFreight}
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	return &RateUsecase{router: router, cache: c, cfg: cfg}
}

// GetRates quotes every registered carrier and returns the offers ordered by
// marked-up price. Carriers that fail or have no rate are left out.
func (u *RateUsecase) GetRates(ctx context.Context, req domain.QuoteRequest) ([]RateOption, error) {
	if err := validateQuote(req); err != nil {
		return nil, err
	}
	return u.quote(ctx, "b2c", req, u.router.Adapters(), u.cfg.Markups)
}

// GetRatesB2B quotes the freight carriers only, with their B2B markups.
func (u *RateUsecase) GetRatesB2B(ctx context.Context, req domain.QuoteRequest) ([]RateOption, error) {
	if err := validateQuote(req); err != nil {
		return nil, err
	}
	var adapters []domain.CarrierAdapter
	for _, kind := range u.cfg.B2BCarriers {
		if a, ok := u.router.Adapter(kind); ok {
			adapters = append(adapters, a)
		}
	}
	return u.quote(ctx, "b2b", req, adapters, u.cfg.B2BMarkups)
}

// QuoteCourier prices a shipment for one courier at the same marked-up rate
// GetRates shows the merchant. Returns ErrCourierNotQuoted when the courier's
// carrier has no rate for it.
func (u *RateUsecase) QuoteCourier(ctx context.Context, req domain.QuoteRequest, courierID int) (decimal.Decimal, error) {
	if err := validateQuote(req); err != nil {
		return decimal.Zero, err
	}
	kind, ok := u.router.Kind(courierID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", domain.ErrUnknownCourier, courierID)
	}
	adapter, ok := u.router.Adapter(kind)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", domain.ErrUnknownCourier, courierID)
	}
	options, err := u.quote(ctx, "courier:"+string(kind), req, []domain.CarrierAdapter{adapter}, u.cfg.Markups)
	if err != nil {
		return decimal.Zero, err
	}
	for _, o := range options {
		if o.CourierID == courierID && o.Rate.IsPositive() {
			return o.Rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: courier %d", domain.ErrCourierNotQuoted, courierID)
}

func validateQuote(req domain.QuoteRequest) error {
	if req.OriginPincode == "" || req.DestPincode == "" {
		return fmt.Errorf("%w: origin and destination pincodes are required", domain.ErrInvalidQuoteRequest)
	}
	if !req.Weight.IsPositive() {
		return fmt.Errorf("%w: weight must be positive", domain.ErrInvalidQuoteRequest)
	}
	return nil
}

func quoteCacheKey(segment string, req domain.QuoteRequest) string {
	return fmt.Sprintf("rates:%s:%s:%s:%t:%s:%s:%s:%s:%s", segment,
		req.OriginPincode, req.DestPincode, req.COD, req.Weight.String(),
		req.Dimensions.Length.String(), req.Dimensions.Breadth.String(), req.Dimensions.Height.String(),
		req.DeclaredValue.String())
}

func (u *RateUsecase) quote(ctx context.Context, segment string, req domain.QuoteRequest, adapters []domain.CarrierAdapter, markups map[domain.CarrierKind]decimal.Decimal) ([]RateOption, error) {
	key := quoteCacheKey(segment, req)
	if u.cache != nil && u.cfg.CacheTTL > 0 {
		if v, ok := u.cache.Get(key); ok {
			if cached, ok := v.([]RateOption); ok {
				return append([]RateOption(nil), cached...), nil
			}
		}
	}

	log := logger.WithContext(ctx)
	results := make([][]domain.Quote, len(adapters))

	var g errgroup.Group
	g.SetLimit(u.cfg.MaxParallel)
	for i, a := range adapters {
		g.Go(func() error {
			quotes, err := a.QuoteRates(ctx, req)
			switch {
			case err != nil:
				metrics.QuotesExcludedTotal.WithLabelValues(string(a.Kind()), "error").Inc()
				log.Warn().Err(err).Str("carrier", string(a.Kind())).Msg("Carrier excluded from rates")
			case len(quotes) == 0:
				metrics.QuotesExcludedTotal.WithLabelValues(string(a.Kind()), "unavailable").Inc()
				log.Debug().Str("carrier", string(a.Kind())).Msg("No rate for lane")
			default:
				for k := range quotes {
					quotes[k].Carrier = a.Kind()
				}
				results[i] = quotes
			}
			return nil
		})
	}
	_ = g.Wait()

	options := make([]RateOption, 0)
	for _, quotes := range results {
		for _, q := range quotes {
			options = append(options, RateOption{
				CourierID:     q.CourierID,
				CourierName:   q.CourierName,
				EstimatedDays: q.ETADays,
				Rate:          applyMarkup(q.Price, markups[q.Carrier]),
				Logo:          q.Logo,
			})
		}
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Rate.LessThan(options[j].Rate)
	})

	if u.cache != nil && u.cfg.CacheTTL > 0 && len(options) > 0 {
		u.cache.Set(key, append([]RateOption(nil), options...), u.cfg.CacheTTL)
	}
	return options, nil
}

func applyMarkup(price, markup decimal.Decimal) decimal.Decimal {
	if markup.IsZero() {
		return price.Round(2)
	}
	return price.Mul(markup).Round(2)
}
