package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/service"
)

// ActivityHandler expone el registro de actividad.
type ActivityHandler struct {
	logger   *zap.Logger
	activity *service.ActivityService
}

func NewActivityHandler(logger *zap.Logger, activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{logger: logger, activity: activity}
}

// Recent maneja GET /api/activities/recent?limit=.
func (h *ActivityHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondFail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	items, err := h.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "recent activities", err)
		return
	}
	respondList(c, items)
}

// Stats maneja GET /api/activities/stats.
func (h *ActivityHandler) Stats(c *gin.Context) {
	actor, _ := GetActor(c)
	stats, err := h.activity.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, "activity stats", err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

// ForProjector maneja GET /api/activities/projector/:id.
func (h *ActivityHandler) ForProjector(c *gin.Context) {
	items, err := h.activity.ForEquipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "projector activities", err)
		return
	}
	respondList(c, items)
}

// ForUser maneja GET /api/activities/user/:id.
func (h *ActivityHandler) ForUser(c *gin.Context) {
	items, err := h.activity.ForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "user activities", err)
		return
	}
	respondList(c, items)
}
