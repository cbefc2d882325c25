package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/dian-fe/internal/application/auth"
	"github.com/tu-usuario/dian-fe/internal/application/billing"
	"github.com/tu-usuario/dian-fe/internal/application/usecase"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Pipeline    *billing.Pipeline
	NumberingUC *usecase.NumberingUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos electrónicos: radicar requiere rol emisor; consultar, cualquiera.
	docs := protected.Group("/documents")
	docHandler := NewDocumentHandler(deps.Pipeline)
	docs.Post("/", RequireRole(entity.RoleEmisor), docHandler.Submit)
	docs.Post("/refresh", RequireRole(entity.RoleEmisor), docHandler.RefreshPending)
	docs.Get("/pending", docHandler.ListPending)
	docs.Get("/:prefix/:number", docHandler.GetByNumber)

	// Rangos de numeración (solo admin)
	numbering := protected.Group("/numbering", RequireRole())
	numberingHandler := NewNumberingHandler(deps.NumberingUC)
	numbering.Post("/", numberingHandler.Create)
	numbering.Get("/", numberingHandler.List)
}
