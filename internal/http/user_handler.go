package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewUserHandler(logger *zap.Logger, auth *service.AuthService) *UserHandler {
	return &UserHandler{logger: logger, auth: auth}
}

// List maneja GET /api/users.
func (h *UserHandler) List(c *gin.Context) {
	actor, _ := GetActor(c)
	users, err := h.auth.ListUsers(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	respondList(c, users)
}

// UpdateMe maneja PUT /api/users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Designation *string `json:"designation"`
		Department  *string `json:"department"`
	}
	if !bindJSON(c, h.logger, "update profile", &req) {
		return
	}

	actor, _ := GetActor(c)
	user, err := h.auth.UpdateProfile(c.Request.Context(), actor, service.ProfileInput{
		Name:        req.Name,
		Designation: req.Designation,
		Department:  req.Department,
	})
	if err != nil {
		respondError(c, h.logger, "update profile", err)
		return
	}
	respond(c, http.StatusOK, "profile updated", user)
}
