package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// Links manages RoomLink tenancy records.
type Links struct {
	db *DB
}

// NewLinks creates a RoomLink repository.
func NewLinks(db *DB) *Links {
	return &Links{db: db}
}

// Open starts a tenancy. An occupant may hold only one open link.
func (s *Links) Open(ctx context.Context, occupantID, roomID int64, at time.Time, score *int) (*model.RoomLink, error) {
	existing, err := s.Active(ctx, occupantID)
	if err != nil && !errors.Is(err, apperr.ErrNotAllocated) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AlreadyAllocated("occupant %d already holds an open link to room %d", occupantID, existing.RoomID)
	}

	link := &model.RoomLink{
		OccupantID:         occupantID,
		RoomID:             roomID,
		JoinedAt:           at,
		CompatibilityScore: score,
	}
	if err := s.db.Conn(ctx).Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to open room link for occupant %d: %w", occupantID, err)
	}
	return link, nil
}

// Close ends the occupant's open tenancy, recording the reason in notes.
func (s *Links) Close(ctx context.Context, occupantID int64, at time.Time, notes string) (*model.RoomLink, error) {
	link, err := s.Active(ctx, occupantID)
	if err != nil {
		return nil, err
	}
	link.LeftAt = &at
	link.Notes = notes
	if err := s.db.Conn(ctx).Model(link).Updates(map[string]any{"left_at": at, "notes": notes}).Error; err != nil {
		return nil, fmt.Errorf("failed to close room link %d: %w", link.ID, err)
	}
	return link, nil
}

// Active returns the occupant's open link, or a NotAllocated error.
func (s *Links) Active(ctx context.Context, occupantID int64) (*model.RoomLink, error) {
	var link model.RoomLink
	err := s.db.Conn(ctx).
		Where("occupant_id = ? AND left_at IS NULL", occupantID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotAllocated("occupant %d has no open room link", occupantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open link for occupant %d: %w", occupantID, err)
	}
	return &link, nil
}

// CountActive counts open links for a room.
func (s *Links) CountActive(ctx context.Context, roomID int64) (int64, error) {
	var n int64
	if err := s.db.Conn(ctx).Model(&model.RoomLink{}).
		Where("room_id = ? AND left_at IS NULL", roomID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count links for room %d: %w", roomID, err)
	}
	return n, nil
}

// ByOccupant returns an occupant's tenancies, oldest first.
func (s *Links) ByOccupant(ctx context.Context, occupantID int64) ([]model.RoomLink, error) {
	var out []model.RoomLink
	if err := s.db.Conn(ctx).
		Where("occupant_id = ?", occupantID).
		Order("joined_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list links for occupant %d: %w", occupantID, err)
	}
	return out, nil
}
