package model

import (
	"fmt"
	"time"
)

// OccupantStatus tracks where an occupant is in the allocation lifecycle.
type OccupantStatus string

const (
	OccupantWaiting              OccupantStatus = "Waiting"
	OccupantProcessingAllocation OccupantStatus = "ProcessingAllocation"
	OccupantAllocated            OccupantStatus = "Allocated"
	OccupantLeft                 OccupantStatus = "Left"
)

var occupantTransitions = map[OccupantStatus][]OccupantStatus{
	OccupantWaiting:              {OccupantProcessingAllocation},
	OccupantProcessingAllocation: {OccupantAllocated, OccupantWaiting},
	OccupantAllocated:            {OccupantLeft},
	OccupantLeft:                 {OccupantWaiting},
}

// CanTransition reports whether from -> to is a legal occupant move.
func CanTransition(from, to OccupantStatus) bool {
	for _, s := range occupantTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Occupant is a person awaiting or holding a room.
type Occupant struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:128;not null" json:"name"`
	Gender          string         `gorm:"size:16" json:"gender"`
	Affiliation     string         `gorm:"size:64" json:"affiliation"`
	Seniority       int            `json:"seniority"`
	PreferenceTag   string         `gorm:"size:32" json:"preferenceTag"`
	DesiredRoomType RoomType       `gorm:"size:16" json:"desiredRoomType"`
	Status          OccupantStatus `gorm:"size:24;not null;index" json:"status"`
	RoomID          *int64         `gorm:"index" json:"roomId"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`

	// Associations
	Preference *Preference `gorm:"foreignKey:OccupantID" json:"preference,omitempty"`
}

// TransitionTo moves the occupant to the next status, rejecting illegal moves.
func (o *Occupant) TransitionTo(next OccupantStatus) error {
	if !CanTransition(o.Status, next) {
		return fmt.Errorf("occupant %d cannot move from %s to %s", o.ID, o.Status, next)
	}
	o.Status = next
	return nil
}

// Consistent reports whether status and room reference agree.
func (o Occupant) Consistent() bool {
	if o.Status == OccupantAllocated {
		return o.RoomID != nil
	}
	return o.RoomID == nil
}
