package hostel

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/registry"
	"hostel-allocation-backend/internal/swap"
	"hostel-allocation-backend/internal/testdb"
	"hostel-allocation-backend/internal/waitlist"
)

func newService(t *testing.T) *Service {
	return New(testdb.New(t), waitlist.Policy{Base: 10, SeniorThreshold: 3, SeniorBonus: 5}, zap.NewNop())
}

func register(t *testing.T, s *Service, name string, rt model.RoomType, pref *model.Preference) *model.Occupant {
	t.Helper()
	o := &model.Occupant{Name: name, DesiredRoomType: rt, Preference: pref}
	require.NoError(t, s.RegisterOccupant(context.Background(), o))
	return o
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	created, updated, err := s.ImportRooms(ctx, []registry.Stock{
		{RoomNumber: "A-101", Block: "A", Floor: 1, Capacity: 2, Type: model.RoomDouble},
		{RoomNumber: "A-102", Block: "A", Floor: 1, Capacity: 1, Type: model.RoomSingle},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Zero(t, updated)

	ana := register(t, s, "ana", model.RoomDouble, &model.Preference{StudyTime: "Night"})
	ben := register(t, s, "ben", model.RoomDouble, nil)
	for _, o := range []*model.Occupant{ana, ben} {
		_, err := s.Enqueue(ctx, o.ID, model.RoomDouble, 0)
		require.NoError(t, err)
	}

	queue, err := s.ListWaitlist(ctx, model.RoomDouble)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, ana.ID, queue[0].OccupantID)

	report, err := s.Allocate(ctx, model.RoomDouble, "warden")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Assigned)

	rooms, err := s.ListRooms(ctx, registry.Filter{Type: model.RoomDouble})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, model.RoomFull, rooms[0].Status)

	single := model.RoomSingle
	req, err := s.SubmitSwap(ctx, swap.Request{OccupantID: ana.ID, TargetType: &single})
	require.NoError(t, err)
	_, err = s.ApproveSwap(ctx, req.ID, "warden", "")
	require.NoError(t, err)
	_, err = s.CompleteSwap(ctx, req.ID, "warden", "")
	require.NoError(t, err)

	require.NoError(t, s.Deallocate(ctx, ben.ID, "Graduated", "warden", false))

	history, err := s.RoomHistory(ctx, rooms[0].ID)
	require.NoError(t, err)
	var types []model.EventType
	for _, ev := range history {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []model.EventType{
		model.EventAllocation, model.EventAllocation, model.EventDeallocation, model.EventDeallocation,
	}, types)

	drift, err := s.VerifyRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestDeallocateWithRequeue(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	_, _, err := s.ImportRooms(ctx, []registry.Stock{{RoomNumber: "A-1", Capacity: 1, Type: model.RoomSingle}})
	require.NoError(t, err)

	o := register(t, s, "ana", "", nil)
	_, err = s.Enqueue(ctx, o.ID, model.RoomSingle, 0)
	require.NoError(t, err)
	_, err = s.Allocate(ctx, model.RoomSingle, "system")
	require.NoError(t, err)

	require.NoError(t, s.Deallocate(ctx, o.ID, "Room Change", "warden", true))

	occ, err := s.GetOccupant(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OccupantWaiting, occ.Status)

	queue, err := s.ListWaitlist(ctx, model.RoomSingle)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, o.ID, queue[0].OccupantID)
}

type recorder struct {
	mu      sync.Mutex
	notices []string
}

func (r *recorder) Notify(_ int64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func TestDeallocateWithRequeueRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	gormDB := testdb.New(t)
	reg := prometheus.NewRegistry()
	n := &recorder{}
	s := New(gormDB, waitlist.Policy{Base: 10, SeniorThreshold: 3, SeniorBonus: 5}, zap.NewNop(),
		WithMetrics(metrics.New(reg)), WithNotifier(n))

	_, _, err := s.ImportRooms(ctx, []registry.Stock{{RoomNumber: "A-1", Capacity: 2, Type: model.RoomDouble}})
	require.NoError(t, err)
	rooms, err := s.ListRooms(ctx, registry.Filter{})
	require.NoError(t, err)
	room := rooms[0]

	o := register(t, s, "ana", model.RoomDouble, nil)
	_, err = s.AssignRoom(ctx, o.ID, room.ID, "warden")
	require.NoError(t, err)
	n.notices = nil

	// A row written before room types were validated makes the requeue step fail
	// after every deallocation write has already gone through.
	require.NoError(t, gormDB.Model(&model.Occupant{}).Where("id = ?", o.ID).
		Update("desired_room_type", "Penthouse").Error)

	err = s.Deallocate(ctx, o.ID, "Room Change", "warden", true)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	occ, err := s.GetOccupant(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OccupantAllocated, occ.Status)
	require.NotNil(t, occ.RoomID)
	assert.Equal(t, room.ID, *occ.RoomID)

	after, err := s.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Occupancy)

	events, err := s.OccupantHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAllocation, events[0].Type)

	links, err := s.Tenancies(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Nil(t, links[0].LeftAt)

	queue, err := s.ListWaitlist(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, queue)

	assert.Empty(t, n.notices)
	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "hostel_deallocations_total 0")
}

func TestSuggestRoommates(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	ana := register(t, s, "ana", model.RoomDouble, &model.Preference{NoiseLevel: "Quiet", StudyTime: "Night"})
	ben := register(t, s, "ben", model.RoomDouble, &model.Preference{NoiseLevel: "Quiet", StudyTime: "Night"})
	cat := register(t, s, "cat", model.RoomDouble, &model.Preference{NoiseLevel: "Loud", StudyTime: "Morning"})

	got, err := s.SuggestRoommates(ctx, ana.ID, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ben.ID, got[0].OccupantID)
	assert.Equal(t, cat.ID, got[1].OccupantID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestAllocateRejectsUnknownType(t *testing.T) {
	s := newService(t)
	_, err := s.Allocate(context.Background(), "Penthouse", "system")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
