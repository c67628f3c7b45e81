package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc *Service }

// RegisterRoutes: public には認証なし、admin には RequireAuth + RequireRole(admin) 済みのグループを渡す
func RegisterRoutes(public gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &AuthHandler{svc: svc}
	public.POST("/auth/login", h.Login)
	admin.POST("/auth/register", h.Register)
	admin.DELETE("/auth/accounts/:username", h.DeleteAccount)
}

type LoginRequest struct {
	// ユーザー名またはメールアドレス
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary ログイン（JWT 発行）
// @Tags    auth
// @Accept  json
// @Produce json
// @Param   body body LoginRequest true "username or e-mail / password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router  /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Login successful",
	})
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" binding:"omitempty,oneof=admin staff user"` // 未指定なら user
}

// Register godoc
// @Summary  アカウント登録（admin）
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "account"
// @Success  201 {object} map[string]any
// @Failure  409 {object} map[string]string
// @Security BearerAuth
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	acct, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		case errors.Is(err, ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered", "user_id": acct.UserID, "username": acct.Username})
}

// DeleteAccount godoc
// @Summary  アカウント削除（admin）
// @Tags     auth
// @Produce  json
// @Param    username path string true "username"
// @Success  200 {object} map[string]string
// @Failure  404 {object} map[string]string
// @Failure  409 {object} map[string]string
// @Security BearerAuth
// @Router   /auth/accounts/{username} [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	username := c.Param("username")

	if err := h.svc.Delete(c.Request.Context(), username); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(err, ErrReferenced):
			c.JSON(http.StatusConflict, gin.H{"error": "account is referenced by devices or lendees"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
