package stock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

func TestProductStock_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       ProductStock
		wantErr error
	}{
		{"正常", ProductStock{PhysicalStock: 10, ReservedStock: 4, Status: StatusInStock}, nil},
		{"预占等于实物", ProductStock{PhysicalStock: 4, ReservedStock: 4, Status: StatusOutOfStock}, nil},
		{"实物为负", ProductStock{PhysicalStock: -1, Status: StatusInStock}, ErrNegativeStock},
		{"预占超过实物", ProductStock{PhysicalStock: 3, ReservedStock: 4, Status: StatusInStock}, ErrReservedExceedsPhysical},
		{"补货点为负", ProductStock{ReorderPoint: -1, Status: StatusInStock}, ErrInvalidReorderSettings},
		{"未知状态", ProductStock{Status: "sold_out"}, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProductStock_Available(t *testing.T) {
	p := &ProductStock{PhysicalStock: 50, ReservedStock: 10}
	assert.Equal(t, 40, p.Available())

	c := p.Clone()
	c.ReservedStock = 20
	assert.Equal(t, 10, p.ReservedStock, "Clone后修改副本不影响原值")
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("low_stock")
	require.NoError(t, err)
	assert.Equal(t, StatusLowStock, st)

	_, err = ParseStatus("LOW_STOCK")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, apperrors.CodeOf(err))
}

func TestProductStock_ChangeAvailability(t *testing.T) {
	p := &ProductStock{Status: StatusLowStock}
	assert.True(t, p.IsSellable())

	require.NoError(t, p.ChangeAvailability(AvailabilityOnHold))
	assert.Equal(t, StatusOnHold, p.Status)
	assert.False(t, p.IsSellable())

	assert.ErrorIs(t, p.ChangeAvailability(AvailabilityOnHold), ErrInvalidStatusTransition)

	require.NoError(t, p.ChangeAvailability(AvailabilityActive))
	assert.Equal(t, StatusInStock, p.Status)

	require.NoError(t, p.ChangeAvailability(AvailabilityDiscontinued))
	assert.ErrorIs(t, p.ChangeAvailability(AvailabilityActive), ErrInvalidStatusTransition)
}

func TestReservation_Lifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewReservation(1, "ORD-1", 10, nil, now)

	require.NoError(t, r.Fulfill(4, now))
	assert.Equal(t, 6, r.Remaining())
	assert.True(t, r.IsActive())

	assert.ErrorIs(t, r.Fulfill(7, now), ErrInvalidReservationState)

	require.NoError(t, r.Fulfill(6, now))
	assert.Equal(t, ReservationFulfilled, r.Status)
	require.NotNil(t, r.ClosedAt)

	err := r.TransitionTo(ReservationCancelled, now)
	assert.True(t, errors.Is(err, ErrInvalidReservationState))
}

func TestReservation_IsDue(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := now.Add(15 * time.Minute)
	r := NewReservation(1, "ORD-2", 1, &expires, now)

	assert.False(t, r.IsDue(now))
	assert.True(t, r.IsDue(expires))
	assert.True(t, r.IsDue(expires.Add(time.Second)))

	require.NoError(t, r.TransitionTo(ReservationCancelled, now))
	assert.False(t, r.IsDue(expires.Add(time.Hour)), "终态预占不会过期")

	noExpiry := NewReservation(1, "ORD-3", 1, nil, now)
	assert.False(t, noExpiry.IsDue(now.Add(24*time.Hour)))
}

func TestReservationStatus(t *testing.T) {
	assert.False(t, ReservationActive.IsTerminal())
	assert.True(t, ReservationExpired.IsTerminal())

	_, err := ParseReservationStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidReservationStatus)
}
