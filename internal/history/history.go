// Package history is the append-only allocation ledger.
package history

import (
	"context"
	"fmt"
	"time"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// Ledger appends and reads AllocationEvents. There is no update or delete.
type Ledger struct {
	db *store.DB
}

// New creates a ledger.
func New(db *store.DB) *Ledger {
	return &Ledger{db: db}
}

// Append writes an event. A zero OccurredAt is stamped with the current time.
func (l *Ledger) Append(ctx context.Context, event *model.AllocationEvent) error {
	if event.ID != 0 {
		return apperr.InvalidArgument("event %d is already recorded", event.ID)
	}
	if event.Type != model.EventAllocation && event.Type != model.EventDeallocation {
		return apperr.InvalidArgument("unknown event type %q", event.Type)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := l.db.Conn(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append %s event for occupant %d: %w", event.Type, event.OccupantID, err)
	}
	return nil
}

// ByOccupant returns an occupant's events in occurrence order.
func (l *Ledger) ByOccupant(ctx context.Context, occupantID int64) ([]model.AllocationEvent, error) {
	return l.find(ctx, "occupant_id = ?", occupantID)
}

// ByRoom returns a room's events in occurrence order.
func (l *Ledger) ByRoom(ctx context.Context, roomID int64) ([]model.AllocationEvent, error) {
	return l.find(ctx, "room_id = ?", roomID)
}

func (l *Ledger) find(ctx context.Context, where string, id int64) ([]model.AllocationEvent, error) {
	var events []model.AllocationEvent
	if err := l.db.Conn(ctx).
		Where(where, id).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to read history (%s %d): %w", where, id, err)
	}
	return events, nil
}
