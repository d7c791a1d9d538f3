package model

import (
	"fmt"
	"strings"
	"time"
)

// RoomType is the layout class a room belongs to.
type RoomType string

const (
	RoomSingle RoomType = "Single"
	RoomDouble RoomType = "Double"
	RoomTriple RoomType = "Triple"
	RoomQuad   RoomType = "Quad"
)

// RoomTypes lists every known room type in capacity order.
var RoomTypes = []RoomType{RoomSingle, RoomDouble, RoomTriple, RoomQuad}

// ParseRoomType resolves a room type case-insensitively.
func ParseRoomType(s string) (RoomType, error) {
	for _, t := range RoomTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown room type %q", s)
}

// RoomStatus is the availability state of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "Available"
	RoomFull        RoomStatus = "Full"
	RoomMaintenance RoomStatus = "Maintenance"
	RoomReserved    RoomStatus = "Reserved"
)

// ParseRoomStatus resolves a room status case-insensitively.
func ParseRoomStatus(s string) (RoomStatus, error) {
	for _, st := range []RoomStatus{RoomAvailable, RoomFull, RoomMaintenance, RoomReserved} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown room status %q", s)
}

// Overridden reports whether the status is an administrative hold that occupancy changes must not clear.
func (s RoomStatus) Overridden() bool {
	return s == RoomMaintenance || s == RoomReserved
}

// Room is a physical unit with a fixed capacity.
type Room struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	RoomNumber string     `gorm:"column:room_number;uniqueIndex;size:32;not null" json:"roomNumber"`
	Capacity   int        `gorm:"not null" json:"capacity"`
	Occupancy  int        `gorm:"not null;default:0;check:chk_rooms_occupancy,occupancy >= 0 AND occupancy <= capacity" json:"occupancy"`
	Block      string     `gorm:"size:32;index" json:"block"`
	Floor      int        `json:"floor"`
	Type       RoomType   `gorm:"column:room_type;size:16;not null;index" json:"type"`
	Status     RoomStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Remaining returns the number of free slots.
func (r Room) Remaining() int {
	if r.Occupancy >= r.Capacity {
		return 0
	}
	return r.Capacity - r.Occupancy
}

// StatusFor derives the status a room should carry at the given occupancy.
// Maintenance and Reserved are kept as-is.
func (r Room) StatusFor(occupancy int) RoomStatus {
	if r.Status.Overridden() {
		return r.Status
	}
	if occupancy >= r.Capacity {
		return RoomFull
	}
	return RoomAvailable
}
