package model

import "time"

// SwapStatus is the state of a room swap request.
type SwapStatus string

const (
	SwapPending     SwapStatus = "Pending"
	SwapUnderReview SwapStatus = "UnderReview"
	SwapApproved    SwapStatus = "Approved"
	SwapRejected    SwapStatus = "Rejected"
	SwapCompleted   SwapStatus = "Completed"
	SwapCancelled   SwapStatus = "Cancelled"
)

var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapPending:     {SwapUnderReview, SwapApproved, SwapRejected, SwapCancelled},
	SwapUnderReview: {SwapApproved, SwapRejected, SwapCancelled},
	SwapApproved:    {SwapCompleted},
}

// CanMove reports whether the swap state machine allows from -> to.
func (s SwapStatus) CanMove(to SwapStatus) bool {
	for _, next := range swapTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Open reports whether a request still awaits a decision.
func (s SwapStatus) Open() bool { return s == SwapPending || s == SwapUnderReview }

// Terminal reports whether no further moves are possible.
func (s SwapStatus) Terminal() bool {
	return s == SwapRejected || s == SwapCompleted || s == SwapCancelled
}

// Processed reports whether a processed date must be recorded for this status.
func (s SwapStatus) Processed() bool {
	return s == SwapApproved || s == SwapRejected || s == SwapCompleted
}

const (
	MinSwapPriority     = 1
	DefaultSwapPriority = 3
	MaxSwapPriority     = 5
)

// SwapRequest tracks an occupant's request to change rooms.
type SwapRequest struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	OccupantID    int64      `gorm:"not null;index" json:"occupantId"`
	CurrentRoomID int64      `gorm:"not null;index" json:"currentRoomId"`
	TargetRoomID  *int64     `json:"targetRoomId"`
	TargetType    *RoomType  `gorm:"size:16" json:"targetType"`
	Status        SwapStatus `gorm:"size:16;not null;index" json:"status"`
	RequestedAt   time.Time  `gorm:"not null;index" json:"requestedAt"`
	ProcessedAt   *time.Time `json:"processedAt"`
	Priority      int        `gorm:"not null;default:3" json:"priority"`
	ProcessedBy   string     `gorm:"size:64" json:"processedBy"`
	Reason        string     `gorm:"size:500" json:"reason"`
	Notes         string     `gorm:"size:500" json:"notes"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
