package history

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/testdb"
)

func TestLedgerOrdering(t *testing.T) {
	ctx := context.Background()
	ledger := New(store.New(testdb.New(t)))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	events := []model.AllocationEvent{
		{OccupantID: 1, RoomID: 10, Type: model.EventDeallocation, OccurredAt: base.Add(2 * time.Hour), Reason: "Room Change"},
		{OccupantID: 1, RoomID: 10, Type: model.EventAllocation, OccurredAt: base},
		{OccupantID: 2, RoomID: 10, Type: model.EventAllocation, OccurredAt: base.Add(time.Hour)},
		{OccupantID: 1, RoomID: 11, Type: model.EventAllocation, OccurredAt: base.Add(2 * time.Hour)},
	}
	for i := range events {
		require.NoError(t, ledger.Append(ctx, &events[i]))
	}

	byOccupant, err := ledger.ByOccupant(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byOccupant, 3)
	assert.Equal(t, model.EventAllocation, byOccupant[0].Type)
	assert.Equal(t, model.EventDeallocation, byOccupant[1].Type, "same instant falls back to insertion order")
	assert.Equal(t, int64(11), byOccupant[2].RoomID)

	byRoom, err := ledger.ByRoom(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byRoom, 3)
	assert.Equal(t, []int64{1, 2, 1}, []int64{byRoom[0].OccupantID, byRoom[1].OccupantID, byRoom[2].OccupantID})
}

func TestAppendValidates(t *testing.T) {
	ctx := context.Background()
	ledger := New(store.New(testdb.New(t)))

	err := ledger.Append(ctx, &model.AllocationEvent{OccupantID: 1, RoomID: 1, Type: "Swap"})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	event := &model.AllocationEvent{OccupantID: 1, RoomID: 1, Type: model.EventAllocation}
	require.NoError(t, ledger.Append(ctx, event))
	assert.False(t, event.OccurredAt.IsZero())

	assert.ErrorIs(t, ledger.Append(ctx, event), apperr.ErrInvalidArgument, "events are never rewritten")
}

func TestAppend_SQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	ledger := New(store.New(gormDB))

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "allocation_events" ("occupant_id","room_id","event_type","occurred_at","reason","actor") VALUES ($1,$2,$3,$4,$5,$6) RETURNING "id"`)).
		WithArgs(int64(3), int64(7), "Allocation", at, "batch", "warden").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	event := &model.AllocationEvent{OccupantID: 3, RoomID: 7, Type: model.EventAllocation, OccurredAt: at, Reason: "batch", Actor: "warden"}
	require.NoError(t, ledger.Append(context.Background(), event))
	assert.Equal(t, int64(1), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
