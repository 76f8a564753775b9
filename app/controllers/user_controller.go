package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/repository"
)

type updateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleGetUser returns a single user; the route is gated self-or-admin.
func HandleGetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load user")
	}

	return c.JSON(user)
}

// HandleUpdateUser updates profile fields; gated self-or-admin.
func HandleUpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load user")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Password != "" {
		if err := user.SetPassword(req.Password); err != nil {
			return internalError(c, "Failed to update password")
		}
	}

	if err := user.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := repo.Update(user); err != nil {
		return internalError(c, "Failed to update user")
	}

	return c.JSON(user)
}

// HandleDeleteUser removes an account; gated self-or-admin.
func HandleDeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := repository.GetGlobalFactory().GetUserRepository().Delete(id); err != nil {
		return internalError(c, "Failed to delete user")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleListUsers returns a paginated user list; admin only.
func HandleListUsers(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	users, err := repo.List(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list users")
	}
	total, err := repo.Count()
	if err != nil {
		return internalError(c, "Failed to count users")
	}

	return c.JSON(fiber.Map{"users": users, "total": total})
}

// HandleUserStats returns new registrations per month for the last year;
// admin only.
func HandleUserStats(c *fiber.Ctx) error {
	since := time.Now().AddDate(-1, 0, 0)
	rows, err := repository.GetGlobalFactory().GetUserRepository().RegistrationsPerMonth(since)
	if err != nil {
		return internalError(c, "Failed to load user statistics")
	}

	stats := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, fiber.Map{"month": row.Month, "count": row.Count})
	}
	return c.JSON(fiber.Map{"registrations": stats})
}
