package principal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shopfox/shopfox/internal/pkg/auth"
)

// Locals key under which the verified principal is stored for a request.
const LocalsKey = "PRINCIPAL"

// FromCtx retrieves the verified principal for the current request, or nil
// if the request carried no valid credential.
func FromCtx(c *fiber.Ctx) *auth.Principal {
	if p, ok := c.Locals(LocalsKey).(*auth.Principal); ok {
		return p
	}
	return nil
}

// Set stores the verified principal in the request Locals.
func Set(c *fiber.Ctx, p *auth.Principal) {
	c.Locals(LocalsKey, p)
}

// IsAdmin reports whether the current request is made by an admin.
func IsAdmin(c *fiber.Ctx) bool {
	if p := FromCtx(c); p != nil {
		return p.IsAdmin
	}
	return false
}

// UserID returns the current user's ID, or 0 if unauthenticated.
func UserID(c *fiber.Ctx) uint {
	if p := FromCtx(c); p != nil {
		return p.UserID
	}
	return 0
}
