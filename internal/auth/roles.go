package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ModeratorFunc reports whether a Telegram user id currently holds the moderator role.
type ModeratorFunc func(userID int64) bool

// RequireModerator rejects tokens whose holder was removed from the moderator list after issuance.
func RequireModerator(isModerator ModeratorFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if isModerator == nil || !isModerator(principal.ModeratorID) {
			return fiber.NewError(http.StatusForbidden, "moderator required")
		}
		return c.Next()
	}
}
