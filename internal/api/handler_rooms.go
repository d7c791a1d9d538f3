package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/registry"
)

// ListRooms handles GET /api/rooms?type=&status=&block=.
func (h *Handler) ListRooms(c *gin.Context) {
	var f registry.Filter
	if raw := c.Query("type"); raw != "" {
		rt, err := model.ParseRoomType(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		f.Type = rt
	}
	if raw := c.Query("status"); raw != "" {
		st, err := model.ParseRoomStatus(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		f.Status = st
	}
	f.Block = c.Query("block")

	rooms, err := h.svc.ListRooms(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

type setRoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetRoomStatus handles PUT /api/rooms/:room_id/status.
func (h *Handler) SetRoomStatus(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	var req setRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := model.ParseRoomStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.svc.SetRoomStatus(c.Request.Context(), id, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// RoomHistory handles GET /api/rooms/:room_id/history.
func (h *Handler) RoomHistory(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	events, err := h.svc.RoomHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
