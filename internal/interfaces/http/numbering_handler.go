package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/dian-fe/internal/application/dto"
	"github.com/tu-usuario/dian-fe/internal/application/usecase"
	"github.com/tu-usuario/dian-fe/internal/domain"
)

// NumberingHandler maneja las resoluciones de numeración (solo admin).
type NumberingHandler struct {
	uc *usecase.NumberingUseCase
}

// NewNumberingHandler construye el handler.
func NewNumberingHandler(uc *usecase.NumberingUseCase) *NumberingHandler {
	return &NumberingHandler{uc: uc}
}

// Create registra una resolución de numeración.
// POST /api/numbering
func (h *NumberingHandler) Create(c *fiber.Ctx) error {
	var in dto.NumberingRangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		if err == domain.ErrInvalidInput {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "resolución inválida: verifique prefijo, rango y fechas"})
		}
		if err == domain.ErrConflict {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "ya existe una resolución activa para el prefijo"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List lista todas las resoluciones registradas.
// GET /api/numbering
func (h *NumberingHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}
