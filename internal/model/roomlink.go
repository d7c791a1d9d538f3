package model

import "time"

// RoomLink records one occupant's tenancy in one room (hot while LeftAt is nil).
type RoomLink struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	OccupantID         int64      `gorm:"not null;index" json:"occupantId"`
	RoomID             int64      `gorm:"not null;index" json:"roomId"`
	JoinedAt           time.Time  `gorm:"not null" json:"joinedAt"`
	LeftAt             *time.Time `gorm:"index" json:"leftAt"`
	Notes              string     `gorm:"size:500" json:"notes"`
	CompatibilityScore *int       `json:"compatibilityScore"`
}

// Active reports whether the occupant is still in the room.
func (l RoomLink) Active() bool { return l.LeftAt == nil }
