package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/auth"
	"github.com/terravest/terravest/internal/identity"
)

// Context keys populated by Protect for downstream handlers.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// Protect validates the bearer token and stores the caller's identity in
// request locals. All role and KYC checks build on top of it, so every
// protected operation goes through the same authorization path.
func Protect(issuer *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := issuer.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole rejects callers whose token role does not match.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, _ := c.Locals(LocalRole).(string)
		if got != role {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireKYC rejects callers whose KYC status is not approved. The status is
// read from the identity store rather than the token so that revocations take
// effect immediately.
func RequireKYC(users identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals(LocalUserID).(string)
		user, err := users.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		if user.KYCStatus != identity.KYCApproved {
			return fiber.NewError(http.StatusForbidden, "kyc approval required")
		}
		return c.Next()
	}
}
