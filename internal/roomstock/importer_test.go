package roomstock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/hostel"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/registry"
	"hostel-allocation-backend/internal/testdb"
	"hostel-allocation-backend/internal/waitlist"
)

// mockSink records what the importer hands over.
type mockSink struct {
	mu    sync.Mutex
	stock []registry.Stock
}

func (m *mockSink) ImportRooms(_ context.Context, stock []registry.Stock) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock = append(m.stock, stock...)
	return len(stock), 0, nil
}

var feed = []Item{
	{RoomNumber: "A-101", Type: "Single"},
	{RoomNumber: "A-102", Type: "double", Capacity: 2, Block: "A", Floor: "1"},
	{RoomNumber: "B-7", Type: "Quad", Floor: "3", Status: "Maintenance"},
	{RoomNumber: "??", Type: "Triple"},
	{RoomNumber: "C-301", Type: "Loft"},
}

// newFeedServer serves feed in pages of pageSize, honouring the requested page.
func newFeedServer(t *testing.T, pageSize int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Page int `json:"page"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))

		var resp APIResponse
		resp.Data.Page = body.Page
		resp.Data.PageSize = pageSize
		resp.Data.Total = len(feed)
		start := (body.Page - 1) * pageSize
		end := min(start+pageSize, len(feed))
		if start < len(feed) {
			resp.Data.Items = feed[start:end]
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(url string) config.RoomStockConfig {
	return config.RoomStockConfig{
		Request: config.RoomStockRequest{
			URL:      url,
			PageSize: 2,
			Headers:  map[string]string{"X-Token": "secret"},
		},
	}
}

func TestImportOnce_PagesAndConverts(t *testing.T) {
	server := newFeedServer(t, 2)
	defer server.Close()

	sink := &mockSink{}
	service := NewService(testConfig(server.URL), sink, zap.NewNop())

	res, err := service.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 3, res.Created)

	assert.Equal(t, []registry.Stock{
		{RoomNumber: "A-101", Capacity: 1, Block: "A", Floor: 1, Type: model.RoomSingle},
		{RoomNumber: "A-102", Capacity: 2, Block: "A", Floor: 1, Type: model.RoomDouble},
		{RoomNumber: "B-7", Capacity: 4, Block: "B", Floor: 3, Type: model.RoomQuad, Status: model.RoomMaintenance},
	}, sink.stock)
}

func TestImportOnce_FeedDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := &mockSink{}
	service := NewService(testConfig(server.URL), sink, zap.NewNop())

	_, err := service.ImportOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sink.stock, "nothing is imported when no page was read")
}

func TestImportOnce_IntoRegistry(t *testing.T) {
	ctx := context.Background()
	server := newFeedServer(t, 2)
	defer server.Close()

	svc := hostel.New(testdb.New(t), waitlist.Policy{Base: 10}, zap.NewNop())
	importer := NewService(testConfig(server.URL), svc, zap.NewNop())

	_, err := importer.ImportOnce(ctx)
	require.NoError(t, err)
	res, err := importer.ImportOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Created, "second import changes nothing")
	assert.Zero(t, res.Updated)

	rooms, err := svc.ListRooms(ctx, registry.Filter{Status: model.RoomMaintenance})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "B-7", rooms[0].RoomNumber)
}
