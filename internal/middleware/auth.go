package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/config"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

const identityContextKey = "currentIdentity"

// AuthMiddleware validates Bearer tokens and loads the authenticated
// identity into the request context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.ErrUnauthorized.WithMessage("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.ErrUnauthorized.WithMessage("invalid authorization header")
		}

		identity, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return apperrors.ErrUnauthorized.WithMessage("invalid or expired token")
		}

		c.Locals(identityContextKey, identity)
		return c.Next()
	}
}

// RequireAdmin rejects requests whose token does not carry a staff role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return apperrors.ErrUnauthorized
		}

		switch identity.Role {
		case models.RoleSuperAdmin, models.RoleStoreAdmin, models.RoleOperator:
			return c.Next()
		default:
			return apperrors.ErrForbidden.WithMessage("admin access required")
		}
	}
}

// CurrentIdentity extracts the authenticated identity from context.
func CurrentIdentity(c *fiber.Ctx) (*utils.Identity, bool) {
	value := c.Locals(identityContextKey)
	if value == nil {
		return nil, false
	}

	if identity, ok := value.(*utils.Identity); ok {
		return identity, true
	}

	return nil, false
}
