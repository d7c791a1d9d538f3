package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccupantTransitions(t *testing.T) {
	testCases := []struct {
		name  string
		from  OccupantStatus
		to    OccupantStatus
		legal bool
	}{
		{"waiting to processing", OccupantWaiting, OccupantProcessingAllocation, true},
		{"processing to allocated", OccupantProcessingAllocation, OccupantAllocated, true},
		{"allocated to left", OccupantAllocated, OccupantLeft, true},
		{"left back to waiting", OccupantLeft, OccupantWaiting, true},
		{"waiting straight to allocated", OccupantWaiting, OccupantAllocated, false},
		{"allocated to waiting", OccupantAllocated, OccupantWaiting, false},
		{"left to allocated", OccupantLeft, OccupantAllocated, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := Occupant{ID: 1, Status: tc.from}
			err := o.TransitionTo(tc.to)
			if tc.legal {
				require.NoError(t, err)
				assert.Equal(t, tc.to, o.Status)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tc.from, o.Status)
			}
		})
	}
}

func TestRoomStatusFor(t *testing.T) {
	room := Room{Capacity: 2, Status: RoomAvailable}
	assert.Equal(t, RoomAvailable, room.StatusFor(1))
	assert.Equal(t, RoomFull, room.StatusFor(2))

	room.Status = RoomMaintenance
	assert.Equal(t, RoomMaintenance, room.StatusFor(2))
	assert.Equal(t, RoomMaintenance, room.StatusFor(0))
}

func TestSwapStatusMoves(t *testing.T) {
	assert.True(t, SwapPending.CanMove(SwapUnderReview))
	assert.True(t, SwapUnderReview.CanMove(SwapRejected))
	assert.True(t, SwapApproved.CanMove(SwapCompleted))
	assert.False(t, SwapApproved.CanMove(SwapCancelled))
	assert.False(t, SwapRejected.CanMove(SwapApproved))
	assert.False(t, SwapCompleted.CanMove(SwapCompleted))

	for _, s := range []SwapStatus{SwapRejected, SwapCompleted, SwapCancelled} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, SwapCancelled.Processed())
	assert.True(t, SwapRejected.Processed())
}

func TestParseRoomType(t *testing.T) {
	rt, err := ParseRoomType(" double ")
	require.NoError(t, err)
	assert.Equal(t, RoomDouble, rt)

	_, err = ParseRoomType("penthouse")
	assert.Error(t, err)
}
