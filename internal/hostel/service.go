// Package hostel wires the allocation core together and is the only entry point the
// HTTP server, the CLI and the background jobs use.
package hostel

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/compat"
	"hostel-allocation-backend/internal/history"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/registry"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/swap"
	"hostel-allocation-backend/internal/waitlist"
)

// Service is the facade over the allocation core.
type Service struct {
	db        *store.DB
	rooms     *registry.Registry
	waitlist  *waitlist.Store
	occupants *store.Occupants
	links     *store.Links
	ledger    *history.Ledger
	engine    *allocation.Engine
	swaps     *swap.Workflow
	metrics   *metrics.Metrics
	log       *zap.Logger
}

type options struct {
	metrics  *metrics.Metrics
	notifier allocation.Notifier
}

// Option configures optional collaborators.
type Option func(*options)

// WithMetrics records metrics for every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithNotifier tells occupants about allocations, deallocations and swap outcomes.
func WithNotifier(n allocation.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// New builds every component on top of gormDB.
func New(gormDB *gorm.DB, policy waitlist.Policy, log *zap.Logger, opts ...Option) *Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sdb := store.New(gormDB)
	s := &Service{
		db:        sdb,
		rooms:     registry.New(sdb, log.Named("registry")),
		waitlist:  waitlist.New(sdb, policy, log.Named("waitlist")),
		occupants: store.NewOccupants(sdb),
		links:     store.NewLinks(sdb),
		ledger:    history.New(sdb),
		metrics:   o.metrics,
		log:       log,
	}

	engineOpts := []allocation.Option{allocation.WithMetrics(o.metrics)}
	swapOpts := []swap.Option{swap.WithMetrics(o.metrics)}
	if o.notifier != nil {
		engineOpts = append(engineOpts, allocation.WithNotifier(o.notifier))
		swapOpts = append(swapOpts, swap.WithNotifier(o.notifier))
	}
	s.engine = allocation.New(sdb, s.rooms, s.waitlist, s.occupants, s.links, s.ledger, log.Named("allocation"), engineOpts...)
	s.swaps = swap.New(sdb, s.occupants, s.rooms, s.engine, log.Named("swap"), swapOpts...)
	return s
}

// Allocate runs the allocation engine for one room type.
func (s *Service) Allocate(ctx context.Context, roomType model.RoomType, actor string) (allocation.Report, error) {
	if _, err := model.ParseRoomType(string(roomType)); err != nil {
		return allocation.Report{}, apperr.InvalidArgument("%v", err)
	}
	return s.engine.Allocate(ctx, roomType, actor)
}

// AllocateAll runs Allocate for every room type in turn, stopping at the first error.
func (s *Service) AllocateAll(ctx context.Context, actor string) ([]allocation.Report, error) {
	reports := make([]allocation.Report, 0, len(model.RoomTypes))
	for _, rt := range model.RoomTypes {
		report, err := s.engine.Allocate(ctx, rt, actor)
		reports = append(reports, report)
		if err != nil {
			return reports, fmt.Errorf("allocation for %s stopped: %w", rt, err)
		}
	}
	return reports, nil
}

// AssignRoom places a waiting occupant into a specific room.
func (s *Service) AssignRoom(ctx context.Context, occupantID, roomID int64, actor string) (allocation.Assignment, error) {
	return s.engine.Assign(ctx, occupantID, roomID, actor)
}

// Deallocate removes an occupant from their room. With requeue set the occupant is
// put back on the waitlist for their desired room type (or their old room's type) in
// the same transaction.
func (s *Service) Deallocate(ctx context.Context, occupantID int64, reason, actor string, requeue bool) error {
	if !requeue {
		return s.engine.Deallocate(ctx, occupantID, reason, actor)
	}
	return s.db.Transaction(ctx, func(ctx context.Context) error {
		occupant, err := s.occupants.Get(ctx, occupantID)
		if err != nil {
			return err
		}
		preferred := occupant.DesiredRoomType
		if preferred == "" && occupant.RoomID != nil {
			room, err := s.rooms.Get(ctx, *occupant.RoomID)
			if err != nil {
				return err
			}
			preferred = room.Type
		}
		if err := s.engine.Deallocate(ctx, occupantID, reason, actor); err != nil {
			return err
		}
		if preferred == "" {
			return apperr.InvalidArgument("occupant %d has no room type to requeue for", occupantID)
		}
		_, err = s.waitlist.Enqueue(ctx, occupantID, preferred, 0)
		return err
	})
}

// RegisterOccupant stores a new occupant and optional preference profile.
func (s *Service) RegisterOccupant(ctx context.Context, o *model.Occupant) error {
	return s.db.Transaction(ctx, func(ctx context.Context) error {
		pref := o.Preference
		o.Preference = nil
		if err := s.occupants.Create(ctx, o); err != nil {
			return err
		}
		if pref == nil {
			return nil
		}
		pref.OccupantID = o.ID
		if err := s.occupants.SavePreference(ctx, pref); err != nil {
			return err
		}
		o.Preference = pref
		return nil
	})
}

// GetOccupant loads an occupant with their preference profile.
func (s *Service) GetOccupant(ctx context.Context, id int64) (*model.Occupant, error) {
	return s.occupants.Get(ctx, id)
}

// Enqueue puts an occupant on the waitlist.
func (s *Service) Enqueue(ctx context.Context, occupantID int64, roomType model.RoomType, baseScore int) (*model.WaitlistEntry, error) {
	return s.waitlist.Enqueue(ctx, occupantID, roomType, baseScore)
}

// Dequeue takes an occupant off the waitlist.
func (s *Service) Dequeue(ctx context.Context, occupantID int64) error {
	return s.waitlist.Dequeue(ctx, occupantID)
}

// ListWaitlist returns the queue for roomType in allocation order, or every entry when
// roomType is empty.
func (s *Service) ListWaitlist(ctx context.Context, roomType model.RoomType) ([]model.WaitlistEntry, error) {
	if roomType == "" {
		return s.waitlist.List(ctx)
	}
	if _, err := model.ParseRoomType(string(roomType)); err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}
	return s.waitlist.ListByType(ctx, roomType)
}

// RecomputePriorities refreshes every waitlist score.
func (s *Service) RecomputePriorities(ctx context.Context) (int, error) {
	n, err := s.waitlist.Recompute(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.AddScoresRaised(n)
	return n, nil
}

// SubmitSwap opens a swap request.
func (s *Service) SubmitSwap(ctx context.Context, req swap.Request) (*model.SwapRequest, error) {
	return s.swaps.Submit(ctx, req)
}

func (s *Service) GetSwap(ctx context.Context, id int64) (*model.SwapRequest, error) {
	return s.swaps.Get(ctx, id)
}

func (s *Service) ReviewSwap(ctx context.Context, id int64, actor string) (*model.SwapRequest, error) {
	return s.swaps.Review(ctx, id, actor)
}

func (s *Service) ApproveSwap(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return s.swaps.Approve(ctx, id, actor, notes)
}

func (s *Service) RejectSwap(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return s.swaps.Reject(ctx, id, actor, notes)
}

func (s *Service) CompleteSwap(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return s.swaps.Complete(ctx, id, actor, notes)
}

func (s *Service) CancelSwap(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return s.swaps.Cancel(ctx, id, actor, notes)
}

func (s *Service) ListPendingSwaps(ctx context.Context) ([]model.SwapRequest, error) {
	return s.swaps.ListPending(ctx)
}

// OccupantHistory returns an occupant's allocation events, oldest first.
func (s *Service) OccupantHistory(ctx context.Context, occupantID int64) ([]model.AllocationEvent, error) {
	return s.ledger.ByOccupant(ctx, occupantID)
}

// RoomHistory returns a room's allocation events, oldest first.
func (s *Service) RoomHistory(ctx context.Context, roomID int64) ([]model.AllocationEvent, error) {
	return s.ledger.ByRoom(ctx, roomID)
}

// Tenancies returns an occupant's RoomLinks, oldest first.
func (s *Service) Tenancies(ctx context.Context, occupantID int64) ([]model.RoomLink, error) {
	return s.links.ByOccupant(ctx, occupantID)
}

// SuggestRoommates ranks waiting occupants by compatibility with occupantID.
func (s *Service) SuggestRoommates(ctx context.Context, occupantID int64, limit int) ([]compat.Ranked, error) {
	target, err := s.occupants.Get(ctx, occupantID)
	if err != nil {
		return nil, err
	}
	waiting, err := s.occupants.List(ctx, model.OccupantWaiting)
	if err != nil {
		return nil, err
	}
	candidates := make([]compat.Candidate, 0, len(waiting))
	for _, o := range waiting {
		candidates = append(candidates, compat.CandidateOf(o))
	}
	return compat.Rank(compat.CandidateOf(*target), candidates, limit), nil
}

func (s *Service) ListRooms(ctx context.Context, f registry.Filter) ([]model.Room, error) {
	return s.rooms.List(ctx, f)
}

func (s *Service) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	return s.rooms.Get(ctx, id)
}

// SetRoomStatus applies or releases an administrative hold on a room.
func (s *Service) SetRoomStatus(ctx context.Context, id int64, status model.RoomStatus) (*model.Room, error) {
	return s.rooms.SetStatus(ctx, id, status)
}

// VerifyRooms checks every room's occupancy against its open tenancies and returns
// one error per drifting room.
func (s *Service) VerifyRooms(ctx context.Context) ([]error, error) {
	rooms, err := s.rooms.List(ctx, registry.Filter{})
	if err != nil {
		return nil, err
	}
	var drift []error
	for _, r := range rooms {
		if err := s.rooms.Verify(ctx, r.ID); err != nil {
			drift = append(drift, err)
		}
	}
	return drift, nil
}

// ImportRooms upserts room stock from the external feed.
func (s *Service) ImportRooms(ctx context.Context, stock []registry.Stock) (created, updated int, err error) {
	return s.rooms.Upsert(ctx, stock)
}
