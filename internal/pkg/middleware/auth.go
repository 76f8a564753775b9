package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/shopfox/shopfox/internal/pkg/auth"
	"github.com/shopfox/shopfox/internal/pkg/env"
	"github.com/shopfox/shopfox/internal/pkg/principal"
)

// TokenAuth verifies the bearer token on every request and stores the
// resulting principal in Locals. It never rejects by itself; the Require*
// policies below decide. Requests without a valid token simply carry no
// principal.
func TokenAuth() fiber.Handler {
	secret := env.GetEnv("AUTH_TOKEN_SECRET", "")
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Next()
		}
		p, err := auth.VerifyToken(token, secret)
		if err != nil {
			// Invalid tokens are treated like absent ones; the policy
			// middleware reports the 401.
			return c.Next()
		}
		principal.Set(c, p)
		return c.Next()
	}
}

// RequireAuthenticated ensures the request carries a valid principal.
func RequireAuthenticated(c *fiber.Ctx) error {
	if principal.FromCtx(c) == nil {
		return unauthenticated(c)
	}
	return c.Next()
}

// RequireSelfOrAdmin ensures the principal either owns the resource
// identified by the given route parameter or is an admin. Authentication is
// always checked before ownership so a missing credential yields 401, not 403.
func RequireSelfOrAdmin(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principal.FromCtx(c)
		if p == nil {
			return unauthenticated(c)
		}
		if p.IsAdmin {
			return c.Next()
		}
		ownerID, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil || uint(ownerID) != p.UserID {
			return forbidden(c)
		}
		return c.Next()
	}
}

// RequireAdmin ensures the principal is an admin; 401 before 403.
func RequireAdmin(c *fiber.Ctx) error {
	p := principal.FromCtx(c)
	if p == nil {
		return unauthenticated(c)
	}
	if !p.IsAdmin {
		return forbidden(c)
	}
	return c.Next()
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "message": "Missing or invalid credential"})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Insufficient permissions"})
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// Legacy clients send the raw token in a "token" header.
	return strings.TrimSpace(c.Get("token"))
}
