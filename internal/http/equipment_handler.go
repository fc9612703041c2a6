package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/service"
)

// EquipmentHandler expone el inventario de proyectores.
type EquipmentHandler struct {
	logger    *zap.Logger
	equipment *service.EquipmentService
}

func NewEquipmentHandler(logger *zap.Logger, equipment *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{logger: logger, equipment: equipment}
}

type equipmentRequest struct {
	Name           *string                 `json:"name"`
	Brand          *string                 `json:"brand"`
	Model          *string                 `json:"model"`
	SerialNumber   *string                 `json:"serial_number"`
	Location       *string                 `json:"location"`
	Status         *domain.EquipmentStatus `json:"status"`
	Specifications *domain.Specifications  `json:"specifications"`
	Notes          string                  `json:"notes"`
}

func (r equipmentRequest) input() service.EquipmentInput {
	in := service.EquipmentInput{
		Name:         deref(r.Name),
		Brand:        deref(r.Brand),
		Model:        deref(r.Model),
		SerialNumber: deref(r.SerialNumber),
		Location:     deref(r.Location),
	}
	if r.Status != nil {
		in.Status = *r.Status
	}
	if r.Specifications != nil {
		in.Specifications = *r.Specifications
	}
	return in
}

func (r equipmentRequest) patch() service.EquipmentPatch {
	return service.EquipmentPatch{
		Name:           r.Name,
		Brand:          r.Brand,
		Model:          r.Model,
		SerialNumber:   r.SerialNumber,
		Location:       r.Location,
		Status:         r.Status,
		Specifications: r.Specifications,
		Notes:          r.Notes,
	}
}

// List maneja GET /api/projectors.
func (h *EquipmentHandler) List(c *gin.Context) {
	items, err := h.equipment.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list projectors", err)
		return
	}
	respondList(c, items)
}

// Get maneja GET /api/projectors/:id.
func (h *EquipmentHandler) Get(c *gin.Context) {
	view, err := h.equipment.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get projector", err)
		return
	}
	respond(c, http.StatusOK, "", view)
}

// Create maneja POST /api/projectors.
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req equipmentRequest
	if !bindJSON(c, h.logger, "create projector", &req) {
		return
	}
	actor, _ := GetActor(c)
	view, err := h.equipment.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		respondError(c, h.logger, "create projector", err)
		return
	}
	respond(c, http.StatusCreated, "projector created", view)
}

// Update maneja PUT /api/projectors/:id.
func (h *EquipmentHandler) Update(c *gin.Context) {
	var req equipmentRequest
	if !bindJSON(c, h.logger, "update projector", &req) {
		return
	}
	actor, _ := GetActor(c)
	view, err := h.equipment.Update(c.Request.Context(), actor, c.Param("id"), req.patch())
	if err != nil {
		respondError(c, h.logger, "update projector", err)
		return
	}
	respond(c, http.StatusOK, "projector updated", view)
}

// Delete maneja DELETE /api/projectors/:id (baja lógica).
func (h *EquipmentHandler) Delete(c *gin.Context) {
	actor, _ := GetActor(c)
	if err := h.equipment.SoftDelete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete projector", err)
		return
	}
	respond(c, http.StatusOK, "projector removed", nil)
}

// CheckOut maneja POST /api/projectors/:id/checkout.
func (h *EquipmentHandler) CheckOut(c *gin.Context) {
	var req notesRequest
	if !bindOptionalJSON(c, h.logger, "checkout", &req) {
		return
	}
	actor, _ := GetActor(c)
	view, err := h.equipment.CheckOut(c.Request.Context(), actor, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, h.logger, "checkout", err)
		return
	}
	respond(c, http.StatusOK, "projector checked out", view)
}

// CheckIn maneja POST /api/projectors/:id/checkin.
func (h *EquipmentHandler) CheckIn(c *gin.Context) {
	var req notesRequest
	if !bindOptionalJSON(c, h.logger, "checkin", &req) {
		return
	}
	actor, _ := GetActor(c)
	view, err := h.equipment.CheckIn(c.Request.Context(), actor, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, h.logger, "checkin", err)
		return
	}
	respond(c, http.StatusOK, "projector checked in", view)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
