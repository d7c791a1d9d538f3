package model

import "time"

// WaitlistEntry is an occupant's place in the queue for a room type.
type WaitlistEntry struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	OccupantID    int64     `gorm:"uniqueIndex;not null" json:"occupantId"`
	PreferredType RoomType  `gorm:"size:16;not null;index" json:"preferredType"`
	WaitingSince  time.Time `gorm:"not null;index" json:"waitingSince"`
	BaseScore     int       `gorm:"not null" json:"baseScore"`
	PriorityScore int       `gorm:"not null;index" json:"priorityScore"`

	// Associations
	Occupant Occupant `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
