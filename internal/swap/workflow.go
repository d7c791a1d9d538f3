// Package swap runs the room swap request workflow.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/tracing"
)

// Mover performs the room transfer when a request completes.
type Mover interface {
	Transfer(ctx context.Context, occupantID, targetRoomID int64, reason, actor string) (allocation.Assignment, error)
}

// Rooms resolves target rooms.
type Rooms interface {
	Get(ctx context.Context, id int64) (*model.Room, error)
	ListAvailable(ctx context.Context, roomType model.RoomType) ([]model.Room, error)
}

// Occupants loads occupants.
type Occupants interface {
	Get(ctx context.Context, id int64) (*model.Occupant, error)
}

// Workflow owns SwapRequest records and their state machine.
type Workflow struct {
	db        *store.DB
	occupants Occupants
	rooms     Rooms
	mover     Mover
	log       *zap.Logger
	metrics   *metrics.Metrics
	notifier  allocation.Notifier

	Now func() time.Time
}

// Option configures optional collaborators.
type Option func(*Workflow)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func WithNotifier(n allocation.Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// New creates a swap workflow.
func New(db *store.DB, occupants Occupants, rooms Rooms, mover Mover, log *zap.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		db:        db,
		occupants: occupants,
		rooms:     rooms,
		mover:     mover,
		log:       log,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Request describes a new swap request. Exactly one of TargetRoomID and TargetType is set.
// A zero Priority means the default.
type Request struct {
	OccupantID   int64
	TargetRoomID *int64
	TargetType   *model.RoomType
	Priority     int
	Reason       string
}

// Submit opens a Pending request for an allocated occupant. An occupant may have only
// one open request.
func (w *Workflow) Submit(ctx context.Context, req Request) (*model.SwapRequest, error) {
	if req.Priority == 0 {
		req.Priority = model.DefaultSwapPriority
	}
	if req.Priority < model.MinSwapPriority || req.Priority > model.MaxSwapPriority {
		return nil, apperr.InvalidArgument("priority %d outside [%d, %d]", req.Priority, model.MinSwapPriority, model.MaxSwapPriority)
	}
	if (req.TargetRoomID == nil) == (req.TargetType == nil) {
		return nil, apperr.InvalidArgument("exactly one of target room and target type is required")
	}
	if req.TargetType != nil {
		if _, err := model.ParseRoomType(string(*req.TargetType)); err != nil {
			return nil, apperr.InvalidArgument("%v", err)
		}
	}

	var out *model.SwapRequest
	err := w.db.Transaction(ctx, func(ctx context.Context) error {
		occupant, err := w.occupants.Get(ctx, req.OccupantID)
		if err != nil {
			return err
		}
		if occupant.Status != model.OccupantAllocated || occupant.RoomID == nil {
			return apperr.NotAllocated("occupant %d has no room to swap", req.OccupantID)
		}
		if req.TargetRoomID != nil {
			if *req.TargetRoomID == *occupant.RoomID {
				return apperr.InvalidArgument("occupant %d already lives in room %d", req.OccupantID, *req.TargetRoomID)
			}
			if _, err := w.rooms.Get(ctx, *req.TargetRoomID); err != nil {
				return err
			}
		}

		var open int64
		if err := w.db.Conn(ctx).Model(&model.SwapRequest{}).
			Where("occupant_id = ? AND status IN ?", req.OccupantID, []model.SwapStatus{model.SwapPending, model.SwapUnderReview}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to count open swaps for occupant %d: %w", req.OccupantID, err)
		}
		if open > 0 {
			return apperr.AlreadyAllocated("occupant %d already has an open swap request", req.OccupantID)
		}

		out = &model.SwapRequest{
			OccupantID:    req.OccupantID,
			CurrentRoomID: *occupant.RoomID,
			TargetRoomID:  req.TargetRoomID,
			TargetType:    req.TargetType,
			Status:        model.SwapPending,
			RequestedAt:   w.Now(),
			Priority:      req.Priority,
			Reason:        req.Reason,
		}
		if err := w.db.Conn(ctx).Create(out).Error; err != nil {
			return fmt.Errorf("failed to create swap request: %w", err)
		}
		w.db.AfterCommit(ctx, func() {
			w.metrics.IncSwapTransition(string(model.SwapPending))
			w.log.Info("swap request submitted",
				zap.Int64("swap_id", out.ID),
				zap.Int64("occupant_id", out.OccupantID),
				zap.Int("priority", out.Priority))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get loads a request.
func (w *Workflow) Get(ctx context.Context, id int64) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := w.db.Conn(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("swap request %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load swap request %d: %w", id, err)
	}
	return &req, nil
}

// ListPending returns open requests by descending priority, then request date.
func (w *Workflow) ListPending(ctx context.Context) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	if err := w.db.Conn(ctx).
		Where("status IN ?", []model.SwapStatus{model.SwapPending, model.SwapUnderReview}).
		Order("priority DESC, requested_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending swaps: %w", err)
	}
	return out, nil
}

// Review moves a Pending request under review.
func (w *Workflow) Review(ctx context.Context, id int64, actor string) (*model.SwapRequest, error) {
	return w.move(ctx, id, model.SwapUnderReview, actor, "")
}

// Approve accepts an open request.
func (w *Workflow) Approve(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return w.move(ctx, id, model.SwapApproved, actor, notes)
}

// Reject declines an open request.
func (w *Workflow) Reject(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return w.move(ctx, id, model.SwapRejected, actor, notes)
}

// Cancel withdraws an open request.
func (w *Workflow) Cancel(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return w.move(ctx, id, model.SwapCancelled, actor, notes)
}

func (w *Workflow) move(ctx context.Context, id int64, next model.SwapStatus, actor, notes string) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := w.db.Transaction(ctx, func(ctx context.Context) error {
		req, err := w.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := w.advance(req, next, actor, notes); err != nil {
			return err
		}
		if err := w.db.Conn(ctx).Save(req).Error; err != nil {
			return fmt.Errorf("failed to save swap request %d: %w", id, err)
		}
		out = req
		w.db.AfterCommit(ctx, func() { w.after(req, actor) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete carries out an Approved request: the occupant moves to the target room and
// the request becomes Completed, in one transaction. A target type resolves to the
// first available room of that type other than the current one.
func (w *Workflow) Complete(ctx context.Context, id int64, actor, notes string) (out *model.SwapRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "swap.complete", attribute.Int64("swap_id", id))
	defer func() { tracing.EndSpan(span, err) }()

	var moved allocation.Assignment
	err = w.db.Transaction(ctx, func(ctx context.Context) error {
		req, err := w.Get(ctx, id)
		if err != nil {
			return err
		}
		if !req.Status.CanMove(model.SwapCompleted) {
			return apperr.InvalidTransition("swap request %d cannot move from %s to %s", id, req.Status, model.SwapCompleted)
		}

		occupant, err := w.occupants.Get(ctx, req.OccupantID)
		if err != nil {
			return err
		}
		if occupant.RoomID == nil || *occupant.RoomID != req.CurrentRoomID {
			return apperr.InvalidTransition("occupant %d is no longer in room %d", req.OccupantID, req.CurrentRoomID)
		}

		targetID, err := w.resolveTarget(ctx, req)
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("Room swap #%d", req.ID)
		moved, err = w.mover.Transfer(ctx, req.OccupantID, targetID, reason, actor)
		if err != nil {
			return err
		}

		req.TargetRoomID = &targetID
		if err := w.advance(req, model.SwapCompleted, actor, notes); err != nil {
			return err
		}
		if err := w.db.Conn(ctx).Save(req).Error; err != nil {
			return fmt.Errorf("failed to save swap request %d: %w", id, err)
		}
		out = req
		w.db.AfterCommit(ctx, func() {
			w.after(req, actor)
			w.notify(req.OccupantID, fmt.Sprintf("Your room swap is complete. Your new room is %s.", moved.RoomNumber))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Workflow) resolveTarget(ctx context.Context, req *model.SwapRequest) (int64, error) {
	if req.TargetRoomID != nil {
		return *req.TargetRoomID, nil
	}
	if req.TargetType == nil {
		return 0, apperr.InvalidArgument("swap request %d has no target", req.ID)
	}
	rooms, err := w.rooms.ListAvailable(ctx, *req.TargetType)
	if err != nil {
		return 0, err
	}
	for _, r := range rooms {
		if r.ID != req.CurrentRoomID {
			return r.ID, nil
		}
	}
	return 0, apperr.NoCapacity("no %s room available for swap request %d", *req.TargetType, req.ID)
}

// advance applies one state machine step and keeps processed-at in line with the status.
func (w *Workflow) advance(req *model.SwapRequest, next model.SwapStatus, actor, notes string) error {
	if !req.Status.CanMove(next) {
		return apperr.InvalidTransition("swap request %d cannot move from %s to %s", req.ID, req.Status, next)
	}
	req.Status = next
	if next.Processed() {
		now := w.Now()
		req.ProcessedAt = &now
		req.ProcessedBy = actor
	}
	if notes != "" {
		req.Notes = notes
	}
	return nil
}

func (w *Workflow) after(req *model.SwapRequest, actor string) {
	w.metrics.IncSwapTransition(string(req.Status))
	w.log.Info("swap request updated",
		zap.Int64("swap_id", req.ID),
		zap.String("status", string(req.Status)),
		zap.String("actor", actor))
	switch req.Status {
	case model.SwapApproved, model.SwapRejected:
		w.notify(req.OccupantID, fmt.Sprintf("Your room swap request #%d was %s.", req.ID, req.Status))
	}
}

func (w *Workflow) notify(occupantID int64, message string) {
	if w.notifier == nil {
		return
	}
	w.notifier.Notify(occupantID, message)
}
