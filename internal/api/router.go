package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. metricsHandler is mounted at
// /metrics when non-nil.
func NewRouter(h *Handler, cfg config.ServerConfig, metricsHandler http.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.AccessLog(log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Reads are cached briefly; any successful write flushes everything.
	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	caching := responses.Read()

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.Use(rateLimiter, responses.Invalidate())
	{
		api.GET("/rooms", caching, h.ListRooms)
		api.PUT("/rooms/:room_id/status", h.SetRoomStatus)
		api.GET("/rooms/:room_id/history", h.RoomHistory)

		api.POST("/allocations", h.Allocate)
		api.POST("/allocations/assign", h.Assign)

		api.POST("/occupants", h.RegisterOccupant)
		api.GET("/occupants/:occupant_id", h.GetOccupant)
		api.POST("/occupants/:occupant_id/deallocate", h.Deallocate)
		api.GET("/occupants/:occupant_id/history", h.OccupantHistory)
		api.GET("/occupants/:occupant_id/tenancies", h.OccupantTenancies)
		api.GET("/occupants/:occupant_id/suggestions", h.Suggestions)

		api.GET("/waitlist", caching, h.ListWaitlist)
		api.POST("/waitlist", h.Enqueue)
		api.POST("/waitlist/recompute", h.Recompute)
		api.DELETE("/waitlist/:occupant_id", h.Dequeue)

		api.POST("/swaps", h.SubmitSwap)
		api.GET("/swaps/pending", h.ListPendingSwaps)
		api.GET("/swaps/:swap_id", h.GetSwap)
		api.POST("/swaps/:swap_id/review", h.ReviewSwap())
		api.POST("/swaps/:swap_id/approve", h.ApproveSwap())
		api.POST("/swaps/:swap_id/reject", h.RejectSwap())
		api.POST("/swaps/:swap_id/complete", h.CompleteSwap())
		api.POST("/swaps/:swap_id/cancel", h.CancelSwap())

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/subscriptions/key", h.PushKey)
	}

	return r
}
