// README: Caller profile handlers: roles, acting-role switch and push token registration.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurs/internal/modules/role"
	"kurs/internal/types"
)

type RoleSwitcher interface {
	SwitchRole(ctx context.Context, sess role.Session, target role.Role) (role.Session, error)
}

type TokenRegistry interface {
	RegisterToken(ctx context.Context, userID types.ID, token string) error
}

type MeHandler struct {
	roles  RoleSwitcher
	tokens TokenRegistry
}

func NewMeHandler(roles RoleSwitcher, tokens TokenRegistry) *MeHandler {
	return &MeHandler{roles: roles, tokens: tokens}
}

func (h *MeHandler) Roles(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, sess)
}

type switchRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *MeHandler) SwitchRole(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req switchRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	target, err := role.Parse(req.Role)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	next, err := h.roles.SwitchRole(c.Request.Context(), sess, target)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, next)
}

type pushTokenReq struct {
	Token string `json:"token" binding:"required"`
}

func (h *MeHandler) RegisterPushToken(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req pushTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.tokens.RegisterToken(c.Request.Context(), sess.PrincipalID, req.Token); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
