// Package waitlist keeps the priority-ordered queue of occupants waiting for a room type.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// Store is the gorm-backed waitlist.
type Store struct {
	db        *store.DB
	occupants *store.Occupants
	policy    Policy
	log       *zap.Logger

	// Now is the clock used for waiting-since stamps and score recomputation.
	Now func() time.Time
}

// New creates a waitlist store.
func New(db *store.DB, policy Policy, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		occupants: store.NewOccupants(db),
		policy:    policy,
		log:       log,
		Now:       time.Now,
	}
}

// Enqueue adds an occupant to the queue for preferredType and marks them Waiting.
// A zero baseScore uses the policy base.
func (s *Store) Enqueue(ctx context.Context, occupantID int64, preferredType model.RoomType, baseScore int) (*model.WaitlistEntry, error) {
	if _, err := model.ParseRoomType(string(preferredType)); err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}
	if baseScore < 0 || baseScore > MaxScore {
		return nil, apperr.InvalidArgument("base score %d outside [0, %d]", baseScore, MaxScore)
	}

	var entry *model.WaitlistEntry
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		occupant, err := s.occupants.Get(ctx, occupantID)
		if err != nil {
			return err
		}
		if occupant.Status == model.OccupantAllocated {
			return apperr.AlreadyAllocated("occupant %d is already allocated", occupantID)
		}

		var existing int64
		if err := s.db.Conn(ctx).Model(&model.WaitlistEntry{}).
			Where("occupant_id = ?", occupantID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check waitlist for occupant %d: %w", occupantID, err)
		}
		if existing > 0 {
			return apperr.DuplicateEntry("occupant %d is already waitlisted", occupantID)
		}

		switch occupant.Status {
		case model.OccupantWaiting:
		case model.OccupantLeft:
			if err := occupant.TransitionTo(model.OccupantWaiting); err != nil {
				return apperr.Wrap(apperr.CodeInvalidTransition, err, "cannot enqueue occupant %d", occupantID)
			}
			if err := s.occupants.Save(ctx, occupant); err != nil {
				return err
			}
		default:
			return apperr.InvalidTransition("occupant %d in status %s cannot be enqueued", occupantID, occupant.Status)
		}

		if baseScore == 0 {
			baseScore = s.policy.Base
		}
		now := s.Now()
		entry = &model.WaitlistEntry{
			OccupantID:    occupantID,
			PreferredType: preferredType,
			WaitingSince:  now,
			BaseScore:     baseScore,
			PriorityScore: s.policy.Score(baseScore, now, now, occupant.Seniority),
		}
		if err := s.db.Conn(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
			return fmt.Errorf("failed to enqueue occupant %d: %w", occupantID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("occupant waitlisted",
		zap.Int64("occupant_id", occupantID),
		zap.String("room_type", string(preferredType)),
		zap.Int("priority", entry.PriorityScore))
	return entry, nil
}

// Dequeue removes an occupant's entry. Removing an absent entry is not an error.
func (s *Store) Dequeue(ctx context.Context, occupantID int64) error {
	if err := s.db.Conn(ctx).Where("occupant_id = ?", occupantID).Delete(&model.WaitlistEntry{}).Error; err != nil {
		return fmt.Errorf("failed to dequeue occupant %d: %w", occupantID, err)
	}
	return nil
}

// Get returns an occupant's entry.
func (s *Store) Get(ctx context.Context, occupantID int64) (*model.WaitlistEntry, error) {
	var entry model.WaitlistEntry
	err := s.db.Conn(ctx).Where("occupant_id = ?", occupantID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("occupant %d is not waitlisted", occupantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load waitlist entry for occupant %d: %w", occupantID, err)
	}
	return &entry, nil
}

// ListByType returns the queue for one room type in allocation order, refreshing
// scores first.
func (s *Store) ListByType(ctx context.Context, roomType model.RoomType) ([]model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		if err := s.db.Conn(ctx).Preload("Occupant").
			Where("preferred_type = ?", roomType).
			Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to list waitlist for %s: %w", roomType, err)
		}
		_, err := s.refresh(ctx, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, compareEntries)
	return entries, nil
}

// List returns every entry grouped by room type, each group in allocation order.
func (s *Store) List(ctx context.Context) ([]model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	if err := s.db.Conn(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	slices.SortStableFunc(entries, func(a, b model.WaitlistEntry) int {
		if a.PreferredType != b.PreferredType {
			return slices.Index(model.RoomTypes, a.PreferredType) - slices.Index(model.RoomTypes, b.PreferredType)
		}
		return compareEntries(a, b)
	})
	return entries, nil
}

// Recompute refreshes every entry's score and returns how many were raised.
func (s *Store) Recompute(ctx context.Context) (int, error) {
	var raised int
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var entries []model.WaitlistEntry
		if err := s.db.Conn(ctx).Preload("Occupant").Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to load waitlist: %w", err)
		}
		n, err := s.refresh(ctx, entries)
		raised = n
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("waitlist priorities recomputed", zap.Int("raised", raised))
	return raised, nil
}

// refresh raises scores in place and persists the ones that changed.
func (s *Store) refresh(ctx context.Context, entries []model.WaitlistEntry) (int, error) {
	now := s.Now()
	raised := 0
	for i := range entries {
		e := &entries[i]
		next := s.policy.Raise(e.PriorityScore, e.BaseScore, e.WaitingSince, now, e.Occupant.Seniority)
		if next == e.PriorityScore {
			continue
		}
		if err := s.db.Conn(ctx).Model(&model.WaitlistEntry{}).
			Where("id = ?", e.ID).
			Update("priority_score", next).Error; err != nil {
			return raised, fmt.Errorf("failed to update priority of occupant %d: %w", e.OccupantID, err)
		}
		e.PriorityScore = next
		raised++
	}
	return raised, nil
}

// compareEntries orders by descending score, then earliest waiting-since, then id.
func compareEntries(a, b model.WaitlistEntry) int {
	if a.PriorityScore != b.PriorityScore {
		return b.PriorityScore - a.PriorityScore
	}
	if c := a.WaitingSince.Compare(b.WaitingSince); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
