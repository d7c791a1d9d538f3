// Package allocation matches waitlisted occupants to open rooms and moves them out again.
//
// Every assignment, deallocation and transfer runs in a single transaction that spans
// the room registry, the waitlist, the occupant record, the RoomLink table and the
// history ledger. Either all of those writes land or none do.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/compat"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/tracing"
)

// Rooms is the subset of the room registry the engine needs.
type Rooms interface {
	Get(ctx context.Context, id int64) (*model.Room, error)
	ListAvailable(ctx context.Context, roomType model.RoomType) ([]model.Room, error)
	AdjustOccupancy(ctx context.Context, room *model.Room, delta int) error
}

// Waitlist is the subset of the waitlist store the engine needs.
type Waitlist interface {
	ListByType(ctx context.Context, roomType model.RoomType) ([]model.WaitlistEntry, error)
	Dequeue(ctx context.Context, occupantID int64) error
}

// Occupants loads and saves occupant records.
type Occupants interface {
	Get(ctx context.Context, id int64) (*model.Occupant, error)
	Save(ctx context.Context, o *model.Occupant) error
	InRoom(ctx context.Context, roomID int64) ([]model.Occupant, error)
}

// Links opens and closes tenancies.
type Links interface {
	Open(ctx context.Context, occupantID, roomID int64, at time.Time, score *int) (*model.RoomLink, error)
	Close(ctx context.Context, occupantID int64, at time.Time, notes string) (*model.RoomLink, error)
}

// Ledger appends history events.
type Ledger interface {
	Append(ctx context.Context, event *model.AllocationEvent) error
}

// Transactor runs fn atomically; collaborators called with the ctx passed to fn join
// the same transaction. AfterCommit holds side effects until the outermost
// transaction commits, so a caller that wraps the engine can still roll back silently.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func())
}

// Notifier is told about outcomes after they commit.
type Notifier interface {
	Notify(occupantID int64, message string)
}

// Engine is the allocation engine.
type Engine struct {
	tx        Transactor
	rooms     Rooms
	waitlist  Waitlist
	occupants Occupants
	links     Links
	ledger    Ledger

	log      *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier

	// Now stamps links and events.
	Now func() time.Time
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithMetrics records allocation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNotifier sends a notice to occupants after each committed change.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an engine.
func New(tx Transactor, rooms Rooms, waitlist Waitlist, occupants Occupants, links Links, ledger Ledger, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		tx:        tx,
		rooms:     rooms,
		waitlist:  waitlist,
		occupants: occupants,
		links:     links,
		ledger:    ledger,
		log:       log,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notice explains why a run made less progress than it could have.
type Notice string

const (
	NoticeNone         Notice = ""
	NoticeNoCapacity   Notice = "NO_CAPACITY"
	NoticeNoCandidates Notice = "NO_CANDIDATES"
	NoticeInterrupted  Notice = "INTERRUPTED"
)

// Assignment is one committed placement.
type Assignment struct {
	OccupantID         int64  `json:"occupantId"`
	RoomID             int64  `json:"roomId"`
	RoomNumber         string `json:"roomNumber"`
	CompatibilityScore *int   `json:"compatibilityScore,omitempty"`
}

// Skip is a candidate passed over because its state did not allow allocation.
// It stays on the waitlist.
type Skip struct {
	OccupantID int64  `json:"occupantId"`
	Reason     string `json:"reason"`
}

// Report summarises an Allocate run.
type Report struct {
	RoomType    model.RoomType `json:"roomType"`
	Assigned    int            `json:"assigned"`
	Unassigned  int            `json:"unassigned"`
	Assignments []Assignment   `json:"assignments"`
	Skipped     []Skip         `json:"skipped,omitempty"`
	Notice      Notice         `json:"notice,omitempty"`
}

// Allocate fills open rooms of roomType with waitlisted candidates, greedily: rooms in
// registry order, candidates in waitlist order. A room is left once it is full. When a
// room fills up under us the same candidate is retried on the next room.
//
// An empty room pool or waitlist is not an error. If ctx is cancelled the run stops
// between assignments and returns the partial report together with ctx.Err().
func (e *Engine) Allocate(ctx context.Context, roomType model.RoomType, actor string) (report Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "allocation.allocate", attribute.String("room_type", string(roomType)))
	defer func() { tracing.EndSpan(span, err) }()
	start := time.Now()

	report = Report{RoomType: roomType, Assignments: []Assignment{}}

	candidates, err := e.waitlist.ListByType(ctx, roomType)
	if err != nil {
		return report, fmt.Errorf("failed to load candidates: %w", err)
	}
	rooms, err := e.rooms.ListAvailable(ctx, roomType)
	if err != nil {
		return report, fmt.Errorf("failed to load rooms: %w", err)
	}

	defer func() {
		report.Unassigned = len(candidates) - report.Assigned
		span.SetAttributes(
			attribute.Int("assigned", report.Assigned),
			attribute.Int("unassigned", report.Unassigned))
		e.metrics.ObserveAllocation(string(roomType), report.Assigned, report.Unassigned, time.Since(start))
		e.log.Info("allocation run finished",
			zap.String("room_type", string(roomType)),
			zap.Int("assigned", report.Assigned),
			zap.Int("unassigned", report.Unassigned),
			zap.Int("skipped", len(report.Skipped)),
			zap.String("notice", string(report.Notice)))
	}()

	switch {
	case len(rooms) == 0:
		report.Notice = NoticeNoCapacity
		return report, nil
	case len(candidates) == 0:
		report.Notice = NoticeNoCandidates
		return report, nil
	}

	ri, ci := 0, 0
	for ci < len(candidates) && ri < len(rooms) {
		if err := ctx.Err(); err != nil {
			report.Notice = NoticeInterrupted
			return report, err
		}

		room := &rooms[ri]
		if room.Remaining() == 0 {
			ri++
			continue
		}

		candidate := candidates[ci]
		a, err := e.assign(ctx, candidate.OccupantID, room, actor, "Allocated from waitlist")
		switch {
		case err == nil:
			report.Assignments = append(report.Assignments, a)
			report.Assigned++
			ci++
		case errors.Is(err, apperr.ErrCapacity):
			e.metrics.IncCapacityConflict()
			e.log.Warn("room filled concurrently, moving on",
				zap.Int64("room_id", room.ID), zap.Error(err))
			ri++
		case errors.Is(err, apperr.ErrInvalidTransition),
			errors.Is(err, apperr.ErrAlreadyAllocated),
			errors.Is(err, apperr.ErrNotFound):
			e.log.Warn("skipping candidate",
				zap.Int64("occupant_id", candidate.OccupantID), zap.Error(err))
			report.Skipped = append(report.Skipped, Skip{OccupantID: candidate.OccupantID, Reason: apperr.MessageOf(err)})
			ci++
		default:
			return report, err
		}
	}
	return report, nil
}

// Assign places one occupant into a specific room, outside the waitlist order.
func (e *Engine) Assign(ctx context.Context, occupantID, roomID int64, actor string) (a Assignment, err error) {
	ctx, span := tracing.StartSpan(ctx, "allocation.assign",
		attribute.Int64("occupant_id", occupantID), attribute.Int64("room_id", roomID))
	defer func() { tracing.EndSpan(span, err) }()

	room, err := e.rooms.Get(ctx, roomID)
	if err != nil {
		return Assignment{}, err
	}
	return e.assign(ctx, occupantID, room, actor, "Assigned by administrator")
}

// assign runs one placement transaction and refreshes room on success.
func (e *Engine) assign(ctx context.Context, occupantID int64, room *model.Room, actor, reason string) (Assignment, error) {
	var (
		out     Assignment
		updated model.Room
	)
	err := e.tx.Transaction(ctx, func(ctx context.Context) error {
		current, err := e.rooms.Get(ctx, room.ID)
		if err != nil {
			return err
		}
		if current.Status != model.RoomAvailable || current.Remaining() == 0 {
			return apperr.Capacity("room %s is %s with %d/%d occupants",
				current.RoomNumber, current.Status, current.Occupancy, current.Capacity)
		}

		occupant, err := e.occupants.Get(ctx, occupantID)
		if err != nil {
			return err
		}
		if occupant.Status == model.OccupantAllocated {
			return apperr.AlreadyAllocated("occupant %d is already allocated", occupantID)
		}
		if err := e.transition(occupant, model.OccupantProcessingAllocation); err != nil {
			return err
		}
		if err := e.occupants.Save(ctx, occupant); err != nil {
			return err
		}

		score, err := e.roommateScore(ctx, *occupant, current.ID)
		if err != nil {
			return err
		}

		if err := e.rooms.AdjustOccupancy(ctx, current, +1); err != nil {
			return err
		}
		now := e.Now()
		if _, err := e.links.Open(ctx, occupant.ID, current.ID, now, score); err != nil {
			return err
		}
		if err := e.transition(occupant, model.OccupantAllocated); err != nil {
			return err
		}
		occupant.RoomID = &current.ID
		if err := e.occupants.Save(ctx, occupant); err != nil {
			return err
		}
		if err := e.waitlist.Dequeue(ctx, occupant.ID); err != nil {
			return err
		}
		if err := e.ledger.Append(ctx, &model.AllocationEvent{
			OccupantID: occupant.ID,
			RoomID:     current.ID,
			Type:       model.EventAllocation,
			OccurredAt: now,
			Reason:     reason,
			Actor:      actor,
		}); err != nil {
			return err
		}

		out = Assignment{OccupantID: occupant.ID, RoomID: current.ID, RoomNumber: current.RoomNumber, CompatibilityScore: score}
		updated = *current
		e.tx.AfterCommit(ctx, func() {
			e.notify(out.OccupantID, fmt.Sprintf("You have been allocated room %s.", out.RoomNumber))
		})
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}

	*room = updated
	return out, nil
}

// Deallocate takes an occupant out of their room and marks them Left. The occupant
// is not put back on the waitlist.
func (e *Engine) Deallocate(ctx context.Context, occupantID int64, reason, actor string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "allocation.deallocate", attribute.Int64("occupant_id", occupantID))
	defer func() { tracing.EndSpan(span, err) }()

	return e.tx.Transaction(ctx, func(ctx context.Context) error {
		occupant, err := e.occupants.Get(ctx, occupantID)
		if err != nil {
			return err
		}
		if occupant.RoomID == nil {
			return apperr.NotAllocated("occupant %d has no room", occupantID)
		}
		room, err := e.rooms.Get(ctx, *occupant.RoomID)
		if err != nil {
			return err
		}

		if err := e.rooms.AdjustOccupancy(ctx, room, -1); err != nil {
			return err
		}
		if err := e.transition(occupant, model.OccupantLeft); err != nil {
			return err
		}
		occupant.RoomID = nil
		if err := e.occupants.Save(ctx, occupant); err != nil {
			return err
		}
		now := e.Now()
		if _, err := e.links.Close(ctx, occupant.ID, now, reason); err != nil {
			return err
		}
		if err := e.ledger.Append(ctx, &model.AllocationEvent{
			OccupantID: occupant.ID,
			RoomID:     room.ID,
			Type:       model.EventDeallocation,
			OccurredAt: now,
			Reason:     reason,
			Actor:      actor,
		}); err != nil {
			return err
		}

		e.tx.AfterCommit(ctx, func() {
			e.metrics.IncDeallocation()
			e.log.Info("occupant deallocated",
				zap.Int64("occupant_id", occupantID),
				zap.String("room_number", room.RoomNumber),
				zap.String("reason", reason))
			e.notify(occupantID, fmt.Sprintf("You have left room %s.", room.RoomNumber))
		})
		return nil
	})
}

// Transfer moves an allocated occupant into targetRoomID: the source room is
// decremented, the target incremented, the tenancy closed and reopened, and one
// Deallocation plus one Allocation event appended. The occupant stays Allocated.
// It joins a transaction already carried by ctx.
func (e *Engine) Transfer(ctx context.Context, occupantID, targetRoomID int64, reason, actor string) (a Assignment, err error) {
	ctx, span := tracing.StartSpan(ctx, "allocation.transfer",
		attribute.Int64("occupant_id", occupantID), attribute.Int64("room_id", targetRoomID))
	defer func() { tracing.EndSpan(span, err) }()

	err = e.tx.Transaction(ctx, func(ctx context.Context) error {
		occupant, err := e.occupants.Get(ctx, occupantID)
		if err != nil {
			return err
		}
		if occupant.Status != model.OccupantAllocated || occupant.RoomID == nil {
			return apperr.NotAllocated("occupant %d has no room", occupantID)
		}
		if *occupant.RoomID == targetRoomID {
			return apperr.InvalidArgument("occupant %d already lives in room %d", occupantID, targetRoomID)
		}
		source, err := e.rooms.Get(ctx, *occupant.RoomID)
		if err != nil {
			return err
		}
		target, err := e.rooms.Get(ctx, targetRoomID)
		if err != nil {
			return err
		}
		if target.Status != model.RoomAvailable || target.Remaining() == 0 {
			return apperr.Capacity("room %s is %s with %d/%d occupants",
				target.RoomNumber, target.Status, target.Occupancy, target.Capacity)
		}

		score, err := e.roommateScore(ctx, *occupant, target.ID)
		if err != nil {
			return err
		}

		if err := e.rooms.AdjustOccupancy(ctx, source, -1); err != nil {
			return err
		}
		if err := e.rooms.AdjustOccupancy(ctx, target, +1); err != nil {
			return err
		}
		now := e.Now()
		if _, err := e.links.Close(ctx, occupant.ID, now, reason); err != nil {
			return err
		}
		if _, err := e.links.Open(ctx, occupant.ID, target.ID, now, score); err != nil {
			return err
		}
		occupant.RoomID = &target.ID
		if err := e.occupants.Save(ctx, occupant); err != nil {
			return err
		}
		for _, ev := range []model.AllocationEvent{
			{OccupantID: occupant.ID, RoomID: source.ID, Type: model.EventDeallocation, OccurredAt: now, Reason: reason, Actor: actor},
			{OccupantID: occupant.ID, RoomID: target.ID, Type: model.EventAllocation, OccurredAt: now, Reason: reason, Actor: actor},
		} {
			if err := e.ledger.Append(ctx, &ev); err != nil {
				return err
			}
		}

		a = Assignment{OccupantID: occupant.ID, RoomID: target.ID, RoomNumber: target.RoomNumber, CompatibilityScore: score}
		e.tx.AfterCommit(ctx, func() {
			e.log.Info("occupant transferred",
				zap.Int64("occupant_id", occupantID),
				zap.String("room_number", target.RoomNumber))
		})
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// roommateScore is the mean compatibility of occupant with the current residents of
// roomID, or nil for an empty room.
func (e *Engine) roommateScore(ctx context.Context, occupant model.Occupant, roomID int64) (*int, error) {
	residents, err := e.occupants.InRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	candidates := make([]compat.Candidate, 0, len(residents))
	for _, r := range residents {
		if r.ID == occupant.ID {
			continue
		}
		candidates = append(candidates, compat.CandidateOf(r))
	}
	score, ok := compat.Average(compat.CandidateOf(occupant), candidates)
	if !ok {
		return nil, nil
	}
	return &score, nil
}

func (e *Engine) transition(o *model.Occupant, next model.OccupantStatus) error {
	if err := o.TransitionTo(next); err != nil {
		return apperr.Wrap(apperr.CodeInvalidTransition, err, "occupant %d", o.ID)
	}
	return nil
}

func (e *Engine) notify(occupantID int64, message string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(occupantID, message)
}
