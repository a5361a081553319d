package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/model"
	"github.com/taskforge/backend/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account. The password is stored only as a bcrypt hash.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration fields"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} map[string][]string
// @Failure 500 {object} model.ErrorResponse
// @Router /api/register/ [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "invalid request body"})
		return
	}

	if _, err := h.svc.Register(c.Request.Context(), req); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.MessageResponse{Message: "User registered successfully."})
}

// Token godoc
// @Summary Obtain an access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.TokenRequest true "Username and password"
// @Success 200 {object} model.TokenPairResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/token/ [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req model.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "invalid request body"})
		return
	}

	access, refresh, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TokenPairResponse{
		Access:  access,
		Refresh: refresh,
	})
}

// Refresh godoc
// @Summary Exchange a refresh token for a new access token
// @Description The refresh token stays valid until its own expiry.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshRequest true "Refresh token"
// @Success 200 {object} model.AccessTokenResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/token/refresh/ [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "invalid request body"})
		return
	}

	access, err := h.svc.Refresh(req.Refresh)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AccessTokenResponse{Access: access})
}

func writeAuthError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	switch err {
	case service.ErrInvalidCredentials:
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Detail: "No active account found with the given credentials"})
	case service.ErrInvalidToken, service.ErrTokenExpired, service.ErrWrongTokenType, service.ErrUserNotFound:
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Detail: tokenErrorDetail(err)})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Detail: "server error"})
	}
}
