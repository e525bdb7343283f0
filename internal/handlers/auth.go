package handlers

import (
	"time"

	"github.com/dreamlog/backend/internal/config"
	"github.com/dreamlog/backend/internal/database"
	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates by username/password and issues a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Username and password are required")
	}

	var user models.User
	if err := database.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid username or password")
	}
	if !user.IsActive {
		return fail(c, fiber.StatusUnauthorized, "User account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid username or password")
	}

	token, err := middleware.GenerateToken(&user, h.cfg)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	now := time.Now().UTC()
	database.DB.Model(&user).Update("last_login", now)

	return ok(c, fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"nickname": user.Nickname,
			"avatar":   user.Avatar,
			"is_vip":   user.VipActive(now),
		},
	})
}

// Logout blacklists the presented token until its natural expiry.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	if token != "" {
		ttl := time.Duration(h.cfg.JWTExpireHours) * time.Hour
		if err := database.BlacklistToken(token, ttl); err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to revoke token")
		}
	}
	return ok(c, fiber.Map{"message": "Logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	now := time.Now()
	return ok(c, fiber.Map{
		"id":               user.ID,
		"username":         user.Username,
		"nickname":         user.Nickname,
		"avatar":           user.Avatar,
		"is_vip":           user.VipActive(now),
		"vip_expire_at":    user.VipExpireAt,
		"consecutive_days": user.ConsecutiveDays,
		"points":           user.Points,
		"created_at":       user.CreatedAt,
	})
}
