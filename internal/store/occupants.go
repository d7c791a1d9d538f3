package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// Occupants reads and writes occupant records.
type Occupants struct {
	db *DB
}

// NewOccupants creates an occupant repository.
func NewOccupants(db *DB) *Occupants {
	return &Occupants{db: db}
}

// Get loads an occupant together with its preference profile.
func (s *Occupants) Get(ctx context.Context, id int64) (*model.Occupant, error) {
	var o model.Occupant
	err := s.db.Conn(ctx).Preload("Preference").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("occupant %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load occupant %d: %w", id, err)
	}
	return &o, nil
}

// Create registers a new occupant. Occupants enter the system Waiting (the default) or Left.
func (s *Occupants) Create(ctx context.Context, o *model.Occupant) error {
	if o.Status == "" {
		o.Status = model.OccupantWaiting
	}
	if o.Status != model.OccupantLeft && o.Status != model.OccupantWaiting {
		return apperr.InvalidArgument("new occupant cannot start in status %s", o.Status)
	}
	if o.DesiredRoomType != "" {
		rt, err := model.ParseRoomType(string(o.DesiredRoomType))
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		o.DesiredRoomType = rt
	}
	o.RoomID = nil
	if err := s.db.Conn(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create occupant %q: %w", o.Name, err)
	}
	return nil
}

// Save persists status and room reference. It refuses to write an occupant whose
// status disagrees with its room reference.
func (s *Occupants) Save(ctx context.Context, o *model.Occupant) error {
	if !o.Consistent() {
		return apperr.InvalidTransition("occupant %d in status %s has inconsistent room reference", o.ID, o.Status)
	}
	if err := s.db.Conn(ctx).Omit(clause.Associations).Save(o).Error; err != nil {
		return fmt.Errorf("failed to save occupant %d: %w", o.ID, err)
	}
	return nil
}

// List returns occupants ordered by id, optionally filtered by status.
func (s *Occupants) List(ctx context.Context, status model.OccupantStatus) ([]model.Occupant, error) {
	q := s.db.Conn(ctx).Preload("Preference").Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []model.Occupant
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupants: %w", err)
	}
	return out, nil
}

// InRoom returns the occupants currently referencing a room.
func (s *Occupants) InRoom(ctx context.Context, roomID int64) ([]model.Occupant, error) {
	var out []model.Occupant
	if err := s.db.Conn(ctx).Preload("Preference").
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupants of room %d: %w", roomID, err)
	}
	return out, nil
}

// SavePreference creates or replaces an occupant's preference profile.
func (s *Occupants) SavePreference(ctx context.Context, p *model.Preference) error {
	err := s.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "occupant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"study_time", "sleep_time", "noise_level", "cleanliness", "interests", "gender_preference"}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to save preference for occupant %d: %w", p.OccupantID, err)
	}
	return nil
}
