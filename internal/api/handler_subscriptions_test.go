package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSubscriptionRouter() *gin.Engine {
	r := gin.New()
	handler := NewHandler(nil, nil, nil, "", zap.NewNop())
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	r.GET("/api/subscriptions", handler.GetSubscription)
	return r
}

func TestPutSubscription(t *testing.T) {
	router := setupSubscriptionRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"INVALID_ARGUMENT","error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionBadRequests(t *testing.T) {
	router := setupSubscriptionRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"INVALID_ARGUMENT","error":"endpoint is required"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	ana := s.register(t, "ana")
	endpoint := "https://push.example.com/send/abc"

	w := s.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "key", "auth": "secret", "occupant_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "key", "auth": "secret", "occupant_id": ana.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Re-subscribing the same endpoint replaces the keys.
	w = s.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "key2", "auth": "secret2", "occupant_id": ana.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(ana.ID), decode[map[string]any](t, w)["occupant_id"])

	w = s.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape("https://push.example.com/missing"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
