package api

import (
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/hostel"
)

// ActorHeader names the staff member or system performing a write.
const ActorHeader = "X-Actor"

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc          *hostel.Service
	db           *gorm.DB
	webpush      *webpush.Options
	defaultActor string
	log          *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *hostel.Service, db *gorm.DB, webpushOptions *webpush.Options, defaultActor string, log *zap.Logger) *Handler {
	if defaultActor == "" {
		defaultActor = "system"
	}
	return &Handler{
		svc:          svc,
		db:           db,
		webpush:      webpushOptions,
		defaultActor: defaultActor,
		log:          log,
	}
}

// actor picks the X-Actor header, then the request body's actor, then the default.
func (h *Handler) actor(c *gin.Context, fromBody string) string {
	if a := c.GetHeader(ActorHeader); a != "" {
		return a
	}
	if fromBody != "" {
		return fromBody
	}
	return h.defaultActor
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeCapacity, apperr.CodeDuplicateEntry, apperr.CodeNoCapacity,
		apperr.CodeAlreadyAllocated, apperr.CodeInvalidTransition:
		return http.StatusConflict
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeNotAllocated:
		return http.StatusUnprocessableEntity
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"code": "INTERNAL", "error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": apperr.CodeInvalidArgument, "error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": apperr.CodeInvalidArgument, "error": "invalid " + name})
		return 0, false
	}
	return id, true
}
