package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/dian-fe/internal/application/dto"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
)

// RequireRole devuelve un middleware Fiber que autoriza por rol del token JWT.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalRole). El rol admin
// pasa siempre.
//
// Comportamiento:
//   - 401 Unauthorized → no hay rol en el contexto (falta AuthMiddleware).
//   - 403 Forbidden    → el rol del token no está entre los permitidos.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "MISSING_ROLE",
				Message: "rol no encontrado en el token",
			})
		}
		if role == entity.RoleAdmin {
			return c.Next()
		}
		for _, r := range allowed {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "FORBIDDEN",
			Message: "el rol '" + role + "' no tiene acceso a esta operación",
		})
	}
}
