package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/swap"
)

type submitSwapRequest struct {
	OccupantID   int64   `json:"occupantId" binding:"required,gt=0"`
	TargetRoomID *int64  `json:"targetRoomId"`
	TargetType   *string `json:"targetType"`
	Priority     int     `json:"priority" binding:"gte=0,lte=5"`
	Reason       string  `json:"reason" binding:"max=500"`
}

// SubmitSwap handles POST /api/swaps.
func (h *Handler) SubmitSwap(c *gin.Context) {
	var req submitSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := swap.Request{
		OccupantID:   req.OccupantID,
		TargetRoomID: req.TargetRoomID,
		Priority:     req.Priority,
		Reason:       req.Reason,
	}
	if req.TargetType != nil {
		rt, err := model.ParseRoomType(*req.TargetType)
		if err != nil {
			badRequest(c, err)
			return
		}
		in.TargetType = &rt
	}

	created, err := h.svc.SubmitSwap(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetSwap handles GET /api/swaps/:swap_id.
func (h *Handler) GetSwap(c *gin.Context) {
	id, ok := pathID(c, "swap_id")
	if !ok {
		return
	}
	req, err := h.svc.GetSwap(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListPendingSwaps handles GET /api/swaps/pending.
func (h *Handler) ListPendingSwaps(c *gin.Context) {
	pending, err := h.svc.ListPendingSwaps(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

type swapDecision struct {
	Actor string `json:"actor"`
	Notes string `json:"notes" binding:"max=500"`
}

type swapAction func(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error)

// decide builds the handler shared by every POST /api/swaps/:swap_id/<action> route.
func (h *Handler) decide(action swapAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "swap_id")
		if !ok {
			return
		}
		var req swapDecision
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
		}
		out, err := action(c.Request.Context(), id, h.actor(c, req.Actor), req.Notes)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *Handler) ReviewSwap() gin.HandlerFunc {
	return h.decide(func(ctx context.Context, id int64, actor, _ string) (*model.SwapRequest, error) {
		return h.svc.ReviewSwap(ctx, id, actor)
	})
}

func (h *Handler) ApproveSwap() gin.HandlerFunc { return h.decide(h.svc.ApproveSwap) }
func (h *Handler) RejectSwap() gin.HandlerFunc { return h.decide(h.svc.RejectSwap) }
func (h *Handler) CompleteSwap() gin.HandlerFunc { return h.decide(h.svc.CompleteSwap) }
func (h *Handler) CancelSwap() gin.HandlerFunc { return h.decide(h.svc.CancelSwap) }
