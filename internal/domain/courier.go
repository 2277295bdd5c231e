package domain

import (
	"fmt"
	"sort"
)

// Sentinel courier ids for the direct integrations.
const (
	CourierIDParcel  = 1001
	CourierIDFreight = 1002
)

// DefaultAggregatorCourierIDs are the aggregator's own courier company ids we
// accept for settlement.
var DefaultAggregatorCourierIDs = []int{1, 10, 12, 14, 24, 33, 39, 43, 51, 54, 82, 142, 217, 225}

// CourierSets is the single definition of which courier ids belong to which carrier.
type CourierSets struct {
	Parcel     int
	Freight    int
	Aggregator []int
}

func DefaultCourierSets() CourierSets {
	ids := make([]int, len(DefaultAggregatorCourierIDs))
	copy(ids, DefaultAggregatorCourierIDs)
	return CourierSets{
		Parcel:     CourierIDParcel,
		Freight:    CourierIDFreight,
		Aggregator: ids,
	}
}

// Validate checks that the three sets are pairwise disjoint.
func (s CourierSets) Validate() error {
	if s.Parcel == s.Freight {
		return fmt.Errorf("courier id %d assigned to both parcel and freight", s.Parcel)
	}
	seen := make(map[int]struct{}, len(s.Aggregator))
	for _, id := range s.Aggregator {
		if id == s.Parcel || id == s.Freight {
			return fmt.Errorf("aggregator courier id %d collides with a direct carrier sentinel", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("aggregator courier id %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// KindOf returns the carrier servicing courierID.
func (s CourierSets) KindOf(courierID int) (CarrierKind, bool) {
	switch courierID {
	case s.Parcel:
		return CarrierParcel, true
	case s.Freight:
		return CarrierFreight, true
	}
	for _, id := range s.Aggregator {
		if id == courierID {
			return CarrierAggregator, true
		}
	}
	return "", false
}

// AllIDs returns every routable courier id in ascending order.
func (s CourierSets) AllIDs() []int {
	ids := append([]int{s.Parcel, s.Freight}, s.Aggregator...)
	sort.Ints(ids)
	return ids
}

// CourierRouter maps courier ids onto the registered carrier adapters.
type CourierRouter interface {
	Resolve(courierID int) (CarrierAdapter, error)
	Kind(courierID int) (CarrierKind, bool)
	Adapter(kind CarrierKind) (CarrierAdapter, bool)
	Adapters() []CarrierAdapter
}
