package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

type mobileRequest struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
}

type verifyRequest struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
	Code         string `json:"code" binding:"required"`
}

type roleRequest struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

type tokenResponse struct {
	Message     string       `json:"message"`
	User        *domain.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int          `json:"expiresIn"`
}

func (h *handlers) register(c *gin.Context) {
	var req mobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.deps.UserSvc.Register(c.Request.Context(), req.MobileNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "verification code sent", "user": u})
}

func (h *handlers) verifyRegistration(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, token, err := h.deps.UserSvc.VerifyRegistration(c.Request.Context(), req.MobileNumber, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse("account verified", u, token))
}

func (h *handlers) login(c *gin.Context) {
	var req mobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.deps.UserSvc.Login(c.Request.Context(), req.MobileNumber); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

func (h *handlers) verifyLogin(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, token, err := h.deps.UserSvc.VerifyLogin(c.Request.Context(), req.MobileNumber, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse("logged in", u, token))
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req usersvc.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.deps.UserSvc.UpdateProfile(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": u})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.deps.UserSvc.Logout(c.Request.Context(), currentToken(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *handlers) setRole(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.deps.UserSvc.SetAdmin(c.Request.Context(), userID, *req.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("user role changed",
		zap.String("user_id", u.ID),
		zap.Bool("is_admin", u.IsAdmin),
		zap.String("by", currentUser(c).ID),
	)
	c.JSON(http.StatusOK, gin.H{"message": "role updated", "user": u})
}

func (h *handlers) tokenResponse(msg string, u *domain.User, token string) tokenResponse {
	return tokenResponse{
		Message:     msg,
		User:        u,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.deps.UserSvc.AccessTTLSeconds(),
	}
}
