package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
)

// ListWaitlist handles GET /api/waitlist?type=. Without a type every queue is returned.
func (h *Handler) ListWaitlist(c *gin.Context) {
	var rt model.RoomType
	if raw := c.Query("type"); raw != "" {
		parsed, err := model.ParseRoomType(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		rt = parsed
	}
	entries, err := h.svc.ListWaitlist(c.Request.Context(), rt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type enqueueRequest struct {
	OccupantID int64  `json:"occupantId" binding:"required,gt=0"`
	RoomType   string `json:"roomType" binding:"required"`
	BaseScore  int    `json:"baseScore" binding:"gte=0,lte=100"`
}

// Enqueue handles POST /api/waitlist.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rt, err := model.ParseRoomType(req.RoomType)
	if err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.svc.Enqueue(c.Request.Context(), req.OccupantID, rt, req.BaseScore)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Dequeue handles DELETE /api/waitlist/:occupant_id.
func (h *Handler) Dequeue(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	if err := h.svc.Dequeue(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Recompute handles POST /api/waitlist/recompute.
func (h *Handler) Recompute(c *gin.Context) {
	n, err := h.svc.RecomputePriorities(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raised": n})
}
