package carrier

import (
	"fmt"

	"shipwise-backend/internal/domain"
)

// Router resolves a courier id to the adapter that services it.
type Router struct {
	sets     domain.CourierSets
	adapters map[domain.CarrierKind]domain.CarrierAdapter
	order    []domain.CarrierAdapter
}

// NewRouter fails when the courier sets overlap or two adapters claim the
// same carrier kind.
func NewRouter(sets domain.CourierSets, adapters ...domain.CarrierAdapter) (*Router, error) {
	if err := sets.Validate(); err != nil {
		return nil, fmt.Errorf("courier sets: %w", err)
	}
	r := &Router{
		sets:     sets,
		adapters: make(map[domain.CarrierKind]domain.CarrierAdapter, len(adapters)),
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if _, dup := r.adapters[a.Kind()]; dup {
			return nil, fmt.Errorf("two adapters registered for carrier %s", a.Kind())
		}
		r.adapters[a.Kind()] = a
		r.order = append(r.order, a)
	}
	return r, nil
}

func (r *Router) Resolve(courierID int) (domain.CarrierAdapter, error) {
	kind, ok := r.sets.KindOf(courierID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCourier, courierID)
	}
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for carrier %s (courier %d)", domain.ErrUnknownCourier, kind, courierID)
	}
	return a, nil
}

func (r *Router) Kind(courierID int) (domain.CarrierKind, bool) {
	return r.sets.KindOf(courierID)
}

func (r *Router) IsAggregatorMember(courierID int) bool {
	kind, ok := r.sets.KindOf(courierID)
	return ok && kind == domain.CarrierAggregator
}

// Adapter returns the adapter registered for a carrier kind.
func (r *Router) Adapter(kind domain.CarrierKind) (domain.CarrierAdapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// Adapters returns every registered adapter in registration order.
func (r *Router) Adapters() []domain.CarrierAdapter {
	out := make([]domain.CarrierAdapter, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Router) Sets() domain.CourierSets { return r.sets }
