package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
	"github.com/shopfox/shopfox/app/repository"
	"github.com/shopfox/shopfox/internal/pkg/auth"
	"github.com/shopfox/shopfox/internal/pkg/env"
	"github.com/shopfox/shopfox/internal/pkg/mail"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new standard user account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if err := repo.Create(user); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Email is already registered"})
	}

	// Best effort, never blocks registration.
	go func(name, email string) {
		body := "<p>Hi " + name + ",</p><p>your ShopFox account is ready.</p>"
		_ = mail.SendMail(email, "Welcome to ShopFox", body)
	}(user.Name, user.Email)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleLogin verifies credentials and issues a signed access token. Login
// failures are reported without detail on purpose.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loginFailed(c)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Login failed"})
	}

	if !user.CheckPassword(req.Password) || !user.IsActive() {
		return loginFailed(c)
	}

	ttl := tokenTTL()
	token, err := auth.IssueToken(user.ID, user.Role == models.ROLE_ADMIN, ttl, env.GetEnv("AUTH_TOKEN_SECRET", ""))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token issuance failed"})
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		// Best effort; a failed timestamp update must not block login.
		logError("failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_in": int64(ttl.Seconds()),
		"user": fiber.Map{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"is_admin": user.Role == models.ROLE_ADMIN,
		},
	})
}

func loginFailed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "message": "Invalid credentials"})
}

func tokenTTL() time.Duration {
	hours, err := strconv.Atoi(env.GetEnv("AUTH_TOKEN_TTL_HOURS", "72"))
	if err != nil || hours <= 0 {
		hours = 72
	}
	return time.Duration(hours) * time.Hour
}
