package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Changes(t *testing.T) {
	e := NewEntry(1, OpOrderFulfillment,
		Snapshot{Physical: 50, Reserved: 10},
		Snapshot{Physical: 40, Reserved: 0},
		10,
	)

	assert.Equal(t, -10, e.PhysicalChange())
	assert.Equal(t, -10, e.ReservedChange())
	assert.Equal(t, 0, e.AvailableChange())
}

func TestEntry_ReservationOnlyMovesAvailable(t *testing.T) {
	e := NewEntry(1, OpOrderReservation,
		Snapshot{Physical: 100, Reserved: 0},
		Snapshot{Physical: 100, Reserved: 85},
		85,
	)

	assert.Zero(t, e.PhysicalChange())
	assert.Equal(t, 85, e.ReservedChange())
	assert.Equal(t, -85, e.AvailableChange())
	assert.Equal(t, 15, e.After.Available())
}

func TestParseOperationType(t *testing.T) {
	for _, s := range []string{
		"order_reservation", "order_fulfillment", "order_cancellation",
		"return_processing", "manual_adjustment", "reorder_received",
	} {
		op, err := ParseOperationType(s)
		assert.NoError(t, err)
		assert.Equal(t, s, string(op))
	}

	_, err := ParseOperationType("reserve")
	assert.ErrorIs(t, err, ErrInvalidOperationType)
}
