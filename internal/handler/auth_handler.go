package handler

import (
	"net/http"

	"gepe/config"
	"gepe/internal/auth"
	"gepe/internal/domain"
	"gepe/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// UserLookup is the slice of the user repository login needs.
type UserLookup interface {
	GetByEmail(email string) (*models.User, error)
}

type AuthHandler struct {
	users UserLookup
	jwt   *config.JWTConfig
}

func NewAuthHandler(users UserLookup, jwt *config.JWTConfig) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for an access token. Only accounts with a
// password (staff) can log in; customer accounts created from orders have
// none.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}
	if user == nil || user.HashedPassword == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidCredentials.Error()})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidCredentials.Error()})
		return
	}

	token, err := auth.GenerateAccessToken(h.jwt, user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
