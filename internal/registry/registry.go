// Package registry owns Room records. AdjustOccupancy is the only code path allowed
// to change a room's occupancy.
package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// Registry is the gorm-backed room registry.
type Registry struct {
	db    *store.DB
	links *store.Links
	log   *zap.Logger
}

// New creates a room registry.
func New(db *store.DB, log *zap.Logger) *Registry {
	return &Registry{db: db, links: store.NewLinks(db), log: log}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type   model.RoomType
	Status model.RoomStatus
	Block  string
}

// Get loads a room by id.
func (r *Registry) Get(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.Conn(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("room %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %d: %w", id, err)
	}
	return &room, nil
}

// List returns rooms in (block, room number) order.
func (r *Registry) List(ctx context.Context, f Filter) ([]model.Room, error) {
	q := r.db.Conn(ctx).Order("block ASC, room_number ASC, id ASC")
	if f.Type != "" {
		q = q.Where("room_type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Block != "" {
		q = q.Where("block = ?", f.Block)
	}
	var rooms []model.Room
	if err := q.Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// ListAvailable returns rooms of the given type that are Available with a free slot,
// in stable (block, room number) order.
func (r *Registry) ListAvailable(ctx context.Context, roomType model.RoomType) ([]model.Room, error) {
	var rooms []model.Room
	if err := r.db.Conn(ctx).
		Where("room_type = ? AND status = ? AND occupancy < capacity", roomType, model.RoomAvailable).
		Order("block ASC, room_number ASC, id ASC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list available %s rooms: %w", roomType, err)
	}
	return rooms, nil
}

// AdjustOccupancy applies delta to the room's occupancy with a single conditional
// UPDATE, so concurrent writers cannot both take the last slot. The status is then
// recomputed and room is refreshed in place.
func (r *Registry) AdjustOccupancy(ctx context.Context, room *model.Room, delta int) error {
	if delta == 0 {
		return apperr.InvalidArgument("occupancy delta must be non-zero")
	}

	return r.db.Transaction(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)
		res := conn.Model(&model.Room{}).
			Where("id = ? AND occupancy + ? >= 0 AND occupancy + ? <= capacity", room.ID, delta, delta).
			Update("occupancy", gorm.Expr("occupancy + ?", delta))
		if res.Error != nil {
			return fmt.Errorf("failed to adjust occupancy of room %d: %w", room.ID, res.Error)
		}

		current, err := r.Get(ctx, room.ID)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return apperr.Capacity("room %s: occupancy %d%+d outside [0, %d]",
				current.RoomNumber, current.Occupancy, delta, current.Capacity)
		}

		if status := current.StatusFor(current.Occupancy); status != current.Status {
			if err := conn.Model(&model.Room{}).Where("id = ?", current.ID).Update("status", status).Error; err != nil {
				return fmt.Errorf("failed to update status of room %d: %w", current.ID, err)
			}
			current.Status = status
		}

		*room = *current
		return nil
	})
}

// SetStatus applies an administrative status. Maintenance and Reserved are set as-is;
// Available clears an override and re-derives Available/Full from occupancy. Full
// cannot be forced.
func (r *Registry) SetStatus(ctx context.Context, id int64, status model.RoomStatus) (*model.Room, error) {
	if status == model.RoomFull {
		return nil, apperr.InvalidArgument("status Full is derived from occupancy and cannot be set")
	}

	var out *model.Room
	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		room, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		next := status
		if status == model.RoomAvailable {
			room.Status = model.RoomAvailable
			next = room.StatusFor(room.Occupancy)
		}
		if err := r.db.Conn(ctx).Model(&model.Room{}).Where("id = ?", id).Update("status", next).Error; err != nil {
			return fmt.Errorf("failed to set status of room %d: %w", id, err)
		}
		room.Status = next
		out = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("room status changed", zap.Int64("room_id", id), zap.String("status", string(out.Status)))
	return out, nil
}

// Stock is a room description from the external room-stock source.
type Stock struct {
	RoomNumber string
	Capacity   int
	Block      string
	Floor      int
	Type       model.RoomType
	Status     model.RoomStatus // optional; only Maintenance/Reserved/Available are honoured
}

// Upsert creates unknown rooms and refreshes the descriptive fields of known ones.
// Occupancy is never touched and capacity is never lowered below current occupancy.
func (r *Registry) Upsert(ctx context.Context, items []Stock) (created, updated int, err error) {
	err = r.db.Transaction(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)
		for _, item := range items {
			if item.Capacity < 1 || item.Capacity > 4 {
				r.log.Warn("skipping room with invalid capacity",
					zap.String("room_number", item.RoomNumber), zap.Int("capacity", item.Capacity))
				continue
			}

			var existing model.Room
			err := conn.Where("room_number = ?", item.RoomNumber).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				room := model.Room{
					RoomNumber: item.RoomNumber,
					Capacity:   item.Capacity,
					Block:      item.Block,
					Floor:      item.Floor,
					Type:       item.Type,
					Status:     model.RoomAvailable,
				}
				if item.Status.Overridden() {
					room.Status = item.Status
				}
				if err := conn.Create(&room).Error; err != nil {
					return fmt.Errorf("failed to create room %s: %w", item.RoomNumber, err)
				}
				created++
			case err != nil:
				return fmt.Errorf("failed to load room %s: %w", item.RoomNumber, err)
			default:
				if !stockChanged(existing, item) {
					continue
				}
				capacity := item.Capacity
				if capacity < existing.Occupancy {
					r.log.Warn("refusing to lower capacity below occupancy",
						zap.String("room_number", item.RoomNumber),
						zap.Int("occupancy", existing.Occupancy), zap.Int("capacity", item.Capacity))
					capacity = existing.Capacity
				}
				existing.Capacity = capacity
				existing.Block = item.Block
				existing.Floor = item.Floor
				existing.Type = item.Type
				switch {
				case item.Status.Overridden():
					existing.Status = item.Status
				case item.Status == model.RoomAvailable:
					existing.Status = model.RoomAvailable
					existing.Status = existing.StatusFor(existing.Occupancy)
				default:
					existing.Status = existing.StatusFor(existing.Occupancy)
				}
				if err := conn.Model(&model.Room{}).Where("id = ?", existing.ID).Updates(map[string]any{
					"capacity":  existing.Capacity,
					"block":     existing.Block,
					"floor":     existing.Floor,
					"room_type": existing.Type,
					"status":    existing.Status,
				}).Error; err != nil {
					return fmt.Errorf("failed to update room %s: %w", item.RoomNumber, err)
				}
				updated++
			}
		}
		return nil
	})
	return created, updated, err
}

func stockChanged(existing model.Room, item Stock) bool {
	if existing.Capacity != item.Capacity || existing.Block != item.Block ||
		existing.Floor != item.Floor || existing.Type != item.Type {
		return true
	}
	if item.Status == "" {
		return false
	}
	if item.Status.Overridden() {
		return existing.Status != item.Status
	}
	return existing.Status.Overridden()
}

// Verify compares a room's occupancy with its open RoomLinks and reports drift.
func (r *Registry) Verify(ctx context.Context, id int64) error {
	room, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	open, err := r.links.CountActive(ctx, id)
	if err != nil {
		return err
	}
	if int64(room.Occupancy) != open {
		return fmt.Errorf("room %s occupancy %d disagrees with %d open links", room.RoomNumber, room.Occupancy, open)
	}
	return nil
}
