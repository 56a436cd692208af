package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CharlotteMargare/savewater/internal/auth"
)

type authHandler struct {
	svc *auth.Service
}

func newAuthHandler(svc *auth.Service) *authHandler {
	return &authHandler{svc: svc}
}

func (h *authHandler) Nonce(c *gin.Context) {
	nonce, err := h.svc.IssueNonce()
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, "failed to issue nonce")
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

type LoginRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.svc.LoginWithSIWE(req.Message, req.Signature)
	if err != nil {
		writeAPIError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
