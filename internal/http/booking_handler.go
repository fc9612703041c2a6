package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/service"
)

// BookingHandler expone las reservas.
type BookingHandler struct {
	logger   *zap.Logger
	bookings *service.BookingService
}

func NewBookingHandler(logger *zap.Logger, bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{logger: logger, bookings: bookings}
}

// List maneja GET /api/bookings?status=&equipment_id=&user_id=&mine=true.
func (h *BookingHandler) List(c *gin.Context) {
	filter := domain.BookingFilter{
		Status:      domain.BookingStatus(c.Query("status")),
		EquipmentID: c.Query("equipment_id"),
		UserID:      c.Query("user_id"),
	}
	if c.Query("mine") == "true" {
		actor, _ := GetActor(c)
		filter.UserID = actor.UserID
	}
	items, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "list bookings", err)
		return
	}
	respondList(c, items)
}

// Create maneja POST /api/bookings. Las horas llegan en RFC 3339.
func (h *BookingHandler) Create(c *gin.Context) {
	var req struct {
		EquipmentID string    `json:"equipment_id" binding:"required"`
		StartTime   time.Time `json:"start_time"`
		EndTime     time.Time `json:"end_time"`
		Purpose     string    `json:"purpose"`
		Notes       string    `json:"notes"`
	}
	if !bindJSON(c, h.logger, "create booking", &req) {
		return
	}

	actor, _ := GetActor(c)
	view, err := h.bookings.Create(c.Request.Context(), actor, service.BookingInput{
		EquipmentID: req.EquipmentID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Purpose:     req.Purpose,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, "create booking", err)
		return
	}
	respond(c, http.StatusCreated, "booking created", view)
}

// Get maneja GET /api/bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	view, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get booking", err)
		return
	}
	respond(c, http.StatusOK, "", view)
}

// Cancel maneja PUT /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req notesRequest
	if !bindOptionalJSON(c, h.logger, "cancel booking", &req) {
		return
	}
	actor, _ := GetActor(c)
	view, err := h.bookings.Cancel(c.Request.Context(), actor, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, h.logger, "cancel booking", err)
		return
	}
	respond(c, http.StatusOK, "booking cancelled", view)
}
