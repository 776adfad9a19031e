package handler

import (
	"context"
	"net/http"

	"artfolio/internal/model"
	"artfolio/internal/service/auth"
	"artfolio/internal/service/gallery"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Accounts 账号注册与登录
type Accounts interface {
	Register(ctx context.Context, fullName, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, auth.Session, error)
}

type AuthHandler struct {
	accounts Accounts
	registry *gallery.Registry
	logger   *zap.Logger
}

func NewAuthHandler(accounts Accounts, registry *gallery.Registry, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, registry: registry, logger: logger}
}

// Register handles POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.accounts.Register(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.logger.Warn("Register failed", zap.String("email", req.Email), zap.Error(err))
		respondError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	h.registry.SessionChanged(session)
	c.JSON(http.StatusOK, gin.H{"token": token, "session": session})
}

// Logout handles POST /logout，清空该用户的全部状态
func (h *AuthHandler) Logout(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	h.registry.SessionChanged(auth.Session{UID: uid, Status: auth.StatusNotAuthenticated})
	h.logger.Info("User logged out", zap.String("uid", uid))
	c.JSON(http.StatusOK, gin.H{"session": auth.Session{Status: auth.StatusNotAuthenticated}})
}
