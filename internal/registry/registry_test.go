package registry

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/testdb"
)

func newRegistry(t *testing.T) (*Registry, *gorm.DB) {
	gormDB := testdb.New(t)
	return New(store.New(gormDB), zap.NewNop()), gormDB
}

func seedRoom(t *testing.T, db *gorm.DB, room model.Room) model.Room {
	t.Helper()
	if room.Status == "" {
		room.Status = model.RoomAvailable
	}
	require.NoError(t, db.Create(&room).Error)
	return room
}

func TestListAvailable_FiltersAndOrders(t *testing.T) {
	reg, db := newRegistry(t)
	seedRoom(t, db, model.Room{RoomNumber: "B-101", Block: "B", Capacity: 2, Type: model.RoomDouble})
	seedRoom(t, db, model.Room{RoomNumber: "A-102", Block: "A", Capacity: 2, Type: model.RoomDouble})
	seedRoom(t, db, model.Room{RoomNumber: "A-101", Block: "A", Capacity: 2, Type: model.RoomDouble})
	seedRoom(t, db, model.Room{RoomNumber: "A-103", Block: "A", Capacity: 2, Occupancy: 2, Type: model.RoomDouble, Status: model.RoomFull})
	seedRoom(t, db, model.Room{RoomNumber: "A-104", Block: "A", Capacity: 2, Type: model.RoomDouble, Status: model.RoomMaintenance})
	seedRoom(t, db, model.Room{RoomNumber: "A-201", Block: "A", Capacity: 1, Type: model.RoomSingle})

	rooms, err := reg.ListAvailable(context.Background(), model.RoomDouble)
	require.NoError(t, err)

	var numbers []string
	for _, r := range rooms {
		numbers = append(numbers, r.RoomNumber)
	}
	assert.Equal(t, []string{"A-101", "A-102", "B-101"}, numbers)
}

func TestAdjustOccupancy(t *testing.T) {
	ctx := context.Background()

	t.Run("fills room and flips to Full", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Type: model.RoomDouble})

		require.NoError(t, reg.AdjustOccupancy(ctx, &room, 1))
		assert.Equal(t, 1, room.Occupancy)
		assert.Equal(t, model.RoomAvailable, room.Status)

		require.NoError(t, reg.AdjustOccupancy(ctx, &room, 1))
		assert.Equal(t, 2, room.Occupancy)
		assert.Equal(t, model.RoomFull, room.Status)

		stored, err := reg.Get(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Occupancy)
		assert.Equal(t, model.RoomFull, stored.Status)
	})

	t.Run("rejects overflow without writing", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 1, Occupancy: 1, Type: model.RoomSingle, Status: model.RoomFull})

		err := reg.AdjustOccupancy(ctx, &room, 1)
		assert.ErrorIs(t, err, apperr.ErrCapacity)

		stored, err := reg.Get(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Occupancy)
	})

	t.Run("rejects underflow", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Type: model.RoomDouble})

		err := reg.AdjustOccupancy(ctx, &room, -1)
		assert.ErrorIs(t, err, apperr.ErrCapacity)
	})

	t.Run("decrement frees a Full room", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Occupancy: 2, Type: model.RoomDouble, Status: model.RoomFull})

		require.NoError(t, reg.AdjustOccupancy(ctx, &room, -1))
		assert.Equal(t, 1, room.Occupancy)
		assert.Equal(t, model.RoomAvailable, room.Status)
	})

	t.Run("maintenance is preserved", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Occupancy: 2, Type: model.RoomDouble, Status: model.RoomMaintenance})

		require.NoError(t, reg.AdjustOccupancy(ctx, &room, -1))
		assert.Equal(t, model.RoomMaintenance, room.Status)
	})

	t.Run("zero delta is invalid", func(t *testing.T) {
		reg, db := newRegistry(t)
		room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Type: model.RoomDouble})
		assert.ErrorIs(t, reg.AdjustOccupancy(ctx, &room, 0), apperr.ErrInvalidArgument)
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	reg, db := newRegistry(t)
	room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 1, Occupancy: 1, Type: model.RoomSingle, Status: model.RoomFull})

	got, err := reg.SetStatus(ctx, room.ID, model.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, model.RoomMaintenance, got.Status)

	got, err = reg.SetStatus(ctx, room.ID, model.RoomAvailable)
	require.NoError(t, err)
	assert.Equal(t, model.RoomFull, got.Status, "releasing an override re-derives from occupancy")

	_, err = reg.SetStatus(ctx, room.ID, model.RoomFull)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	reg, db := newRegistry(t)
	seedRoom(t, db, model.Room{RoomNumber: "A-1", Block: "A", Capacity: 2, Occupancy: 2, Type: model.RoomDouble, Status: model.RoomFull})

	created, updated, err := reg.Upsert(ctx, []Stock{
		{RoomNumber: "A-1", Block: "A", Floor: 1, Capacity: 1, Type: model.RoomDouble},
		{RoomNumber: "A-2", Block: "A", Floor: 1, Capacity: 2, Type: model.RoomDouble, Status: model.RoomReserved},
		{RoomNumber: "A-3", Block: "A", Capacity: 9, Type: model.RoomQuad},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)

	a1, err := reg.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, a1, 2)
	assert.Equal(t, 2, a1[0].Capacity, "capacity is not lowered below occupancy")
	assert.Equal(t, 2, a1[0].Occupancy)
	assert.Equal(t, 1, a1[0].Floor)
	assert.Equal(t, model.RoomReserved, a1[1].Status)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	reg, db := newRegistry(t)
	room := seedRoom(t, db, model.Room{RoomNumber: "A-1", Capacity: 2, Occupancy: 1, Type: model.RoomDouble})

	assert.Error(t, reg.Verify(ctx, room.ID))

	require.NoError(t, db.Create(&model.RoomLink{OccupantID: 1, RoomID: room.ID, JoinedAt: time.Now()}).Error)
	assert.NoError(t, reg.Verify(ctx, room.ID))
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestAdjustOccupancy_SQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	reg := New(store.New(gormDB), zap.NewNop())

	roomCols := []string{"id", "room_number", "capacity", "occupancy", "block", "floor", "room_type", "status"}

	t.Run("conditional update then status flip", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET "occupancy"=occupancy + $1,"updated_at"=$2 WHERE id = $3 AND occupancy + $4 >= 0 AND occupancy + $5 <= capacity`)).
			WithArgs(1, Any{}, 7, 1, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms" WHERE "rooms"."id" = $1`)).
			WillReturnRows(sqlmock.NewRows(roomCols).AddRow(7, "A-7", 1, 1, "A", 1, "Single", "Available"))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET "status"=$1`)).
			WithArgs("Full", Any{}, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		room := model.Room{ID: 7}
		require.NoError(t, reg.AdjustOccupancy(context.Background(), &room, 1))
		assert.Equal(t, model.RoomFull, room.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row updated rolls back with capacity error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET "occupancy"=occupancy + $1`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms" WHERE "rooms"."id" = $1`)).
			WillReturnRows(sqlmock.NewRows(roomCols).AddRow(7, "A-7", 1, 1, "A", 1, "Single", "Full"))
		mock.ExpectRollback()

		room := model.Room{ID: 7}
		err := reg.AdjustOccupancy(context.Background(), &room, 1)
		assert.ErrorIs(t, err, apperr.ErrCapacity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
