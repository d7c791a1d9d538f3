package model

import "time"

// EventType distinguishes ledger entries.
type EventType string

const (
	EventAllocation   EventType = "Allocation"
	EventDeallocation EventType = "Deallocation"
)

// AllocationEvent is an append-only audit record (cold table).
type AllocationEvent struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	OccupantID int64     `gorm:"not null;index" json:"occupantId"`
	RoomID     int64     `gorm:"not null;index" json:"roomId"`
	Type       EventType `gorm:"column:event_type;size:16;not null" json:"type"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurredAt"`
	Reason     string    `gorm:"size:500" json:"reason"`
	Actor      string    `gorm:"size:64" json:"actor"`
}
