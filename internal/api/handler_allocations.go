package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
)

type allocateRequest struct {
	RoomType string `json:"roomType"`
	Actor    string `json:"actor"`
}

// Allocate handles POST /api/allocations. An empty room type runs every type in turn.
func (h *Handler) Allocate(c *gin.Context) {
	var req allocateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	actor := h.actor(c, req.Actor)

	if req.RoomType == "" {
		reports, err := h.svc.AllocateAll(c.Request.Context(), actor)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, reports)
		return
	}

	rt, err := model.ParseRoomType(req.RoomType)
	if err != nil {
		badRequest(c, err)
		return
	}
	report, err := h.svc.Allocate(c.Request.Context(), rt, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type assignRequest struct {
	OccupantID int64  `json:"occupantId" binding:"required,gt=0"`
	RoomID     int64  `json:"roomId" binding:"required,gt=0"`
	Actor      string `json:"actor"`
}

// Assign handles POST /api/allocations/assign.
func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.svc.AssignRoom(c.Request.Context(), req.OccupantID, req.RoomID, h.actor(c, req.Actor))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type deallocateRequest struct {
	Reason  string `json:"reason" binding:"max=500"`
	Requeue bool   `json:"requeue"`
	Actor   string `json:"actor"`
}

// Deallocate handles POST /api/occupants/:occupant_id/deallocate.
func (h *Handler) Deallocate(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	var req deallocateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := h.svc.Deallocate(c.Request.Context(), id, req.Reason, h.actor(c, req.Actor), req.Requeue); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type registerOccupantRequest struct {
	Name            string            `json:"name" binding:"required,max=128"`
	Gender          string            `json:"gender"`
	Affiliation     string            `json:"affiliation"`
	Seniority       int               `json:"seniority" binding:"gte=0"`
	PreferenceTag   string            `json:"preferenceTag"`
	DesiredRoomType string            `json:"desiredRoomType"`
	Preference      *model.Preference `json:"preference"`
}

// RegisterOccupant handles POST /api/occupants.
func (h *Handler) RegisterOccupant(c *gin.Context) {
	var req registerOccupantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o := &model.Occupant{
		Name:          req.Name,
		Gender:        req.Gender,
		Affiliation:   req.Affiliation,
		Seniority:     req.Seniority,
		PreferenceTag: req.PreferenceTag,
		Preference:    req.Preference,
	}
	if req.DesiredRoomType != "" {
		rt, err := model.ParseRoomType(req.DesiredRoomType)
		if err != nil {
			badRequest(c, err)
			return
		}
		o.DesiredRoomType = rt
	}
	if err := h.svc.RegisterOccupant(c.Request.Context(), o); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GetOccupant handles GET /api/occupants/:occupant_id.
func (h *Handler) GetOccupant(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	o, err := h.svc.GetOccupant(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// OccupantHistory handles GET /api/occupants/:occupant_id/history.
func (h *Handler) OccupantHistory(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	events, err := h.svc.OccupantHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// OccupantTenancies handles GET /api/occupants/:occupant_id/tenancies.
func (h *Handler) OccupantTenancies(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	links, err := h.svc.Tenancies(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

const defaultSuggestions = 5

// Suggestions handles GET /api/occupants/:occupant_id/suggestions?limit=.
func (h *Handler) Suggestions(c *gin.Context) {
	id, ok := pathID(c, "occupant_id")
	if !ok {
		return
	}
	limit := defaultSuggestions
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	ranked, err := h.svc.SuggestRoommates(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}
