package usecase

import (
	"context"
	"errors"
	"testing"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/domain/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// registeringAdapter is a carrier that also keeps pickup locations on file.
type registeringAdapter struct {
	*mocks.MockCarrierAdapter
	*mocks.MockWarehouseRegistrar
}

func TestWarehouseCreate_RegistersWithCarriers(t *testing.T) {
	ctrl := gomock.NewController(t)

	parcel := mocks.NewMockCarrierAdapter(ctrl)
	parcel.EXPECT().Kind().Return(domain.CarrierParcel).AnyTimes()

	freight := registeringAdapter{mocks.NewMockCarrierAdapter(ctrl), mocks.NewMockWarehouseRegistrar(ctrl)}
	freight.MockCarrierAdapter.EXPECT().Kind().Return(domain.CarrierFreight).AnyTimes()
	freight.MockWarehouseRegistrar.EXPECT().RegisterWarehouse(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, w domain.Warehouse) error {
			assert.Equal(t, "Main WH", w.Name)
			assert.Equal(t, "India", w.Country)
			return nil
		})

	agg := registeringAdapter{mocks.NewMockCarrierAdapter(ctrl), mocks.NewMockWarehouseRegistrar(ctrl)}
	agg.MockCarrierAdapter.EXPECT().Kind().Return(domain.CarrierAggregator).AnyTimes()
	agg.MockWarehouseRegistrar.EXPECT().RegisterWarehouse(gomock.Any(), gomock.Any()).
		Return(domain.NewRejection(domain.CarrierAggregator, 400, "pincode not serviceable"))

	router := newStubRouter().
		add(1001, domain.CarrierParcel, parcel).
		add(1002, domain.CarrierFreight, freight).
		add(24, domain.CarrierAggregator, agg)
	repo := newMemWarehouses()
	uc := NewWarehouseUsecase(repo, router, 0)
	uc.clock = fixedClock{testNow}

	ctx := context.Background()
	w := &domain.Warehouse{Name: "  Main WH ", Pincode: "560001", UserID: "user-1"}
	require.NoError(t, uc.Create(ctx, w))
	uc.Wait()

	got, err := uc.GetByName(ctx, "Main WH")
	require.NoError(t, err)
	require.Len(t, got.Registrations, 2)
	assert.True(t, got.Registrations["freight"].OK)
	assert.Equal(t, testNow, got.Registrations["freight"].UpdatedAt)
	assert.False(t, got.Registrations["aggregator"].OK)
	assert.Equal(t, "pincode not serviceable", got.Registrations["aggregator"].Error)

	err = uc.Create(ctx, &domain.Warehouse{Name: "Main WH", Pincode: "560001"})
	assert.ErrorIs(t, err, domain.ErrWarehouseExists)
}

func TestWarehouseCreate_Validates(t *testing.T) {
	uc := NewWarehouseUsecase(newMemWarehouses(), newStubRouter(), 0)
	err := uc.Create(context.Background(), &domain.Warehouse{Name: " ", Pincode: "560001"})
	assert.True(t, errors.Is(err, domain.ErrInvalidWarehouse))
}
