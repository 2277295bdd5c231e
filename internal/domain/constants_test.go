package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusUnshipped, OrderStatusReadyToShip, true},
		{OrderStatusReadyToShip, OrderStatusPickupScheduled, true},
		{OrderStatusPickupScheduled, OrderStatusInTransit, true},
		{OrderStatusInTransit, OrderStatusDelivered, true},
		{OrderStatusInTransit, OrderStatusManifested, false},
		{OrderStatusReadyToShip, OrderStatusUnshipped, false},
		{OrderStatusInTransit, OrderStatusInTransit, false},
		{OrderStatusUnshipped, OrderStatusCancelled, true},
		{OrderStatusInTransit, OrderStatusRTO, true},
		{OrderStatusManifested, OrderStatusLost, true},
		{OrderStatusDelivered, OrderStatusRTO, false},
		{OrderStatusCancelled, OrderStatusReadyToShip, false},
		{OrderStatusLost, OrderStatusDelivered, false},
		{OrderStatus("ON HOLD"), OrderStatusDelivered, false},
		{OrderStatusUnshipped, OrderStatus("ON HOLD"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, s.IsKnown(), s)
	}
	assert.False(t, OrderStatus("").IsKnown())

	var terminal []OrderStatus
	for _, s := range OrderStatuses {
		if s.IsTerminal() {
			terminal = append(terminal, s)
		}
	}
	assert.ElementsMatch(t, []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusRTO, OrderStatusLost}, terminal)
}

func TestTrackingStatusOrderStatus(t *testing.T) {
	tests := map[TrackingStatus]OrderStatus{
		TrackingManifested: OrderStatusManifested,
		TrackingPicked:     OrderStatusInTransit,
		TrackingInTransit:  OrderStatusInTransit,
		TrackingDelivered:  OrderStatusDelivered,
		TrackingRTO:        OrderStatusRTO,
		TrackingLost:       OrderStatusLost,
		TrackingCancelled:  OrderStatusCancelled,
	}
	for ts, want := range tests {
		got, ok := ts.OrderStatus()
		assert.True(t, ok, ts)
		assert.Equal(t, want, got)
	}
	_, ok := TrackingUnknown.OrderStatus()
	assert.False(t, ok)
}
