package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/dian-fe/internal/application/auth"
	"github.com/tu-usuario/dian-fe/internal/application/billing"
	"github.com/tu-usuario/dian-fe/internal/application/usecase"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/signer"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/soap"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/dian-fe/internal/interfaces/http"
	"github.com/tu-usuario/dian-fe/pkg/config"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("configuración inválida: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_dian", cfg.DIAN.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	subRepo := postgres.NewSubmissionRepository(pool)
	numRepo := postgres.NewNumberingRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Certificado de firma: obligatorio, sin él no se puede firmar ni radicar.
	mat, err := signer.LoadPKCS12File(cfg.DIAN.CertPath, cfg.DIAN.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DIAN.CertPath).Msg("cargar certificado de firma")
	}
	if subject, derr := signer.SubjectName(mat.Leaf); derr == nil {
		log.Info().
			Str("subject", subject).
			Str("serial", mat.Leaf.SerialNumber.String()).
			Msg("certificado de firma cargado")
	}

	xadesSigner := signer.NewXadesSigner(mat)
	soapClient := soap.NewClient(cfg.DIAN.Environment, mat, log,
		soap.WithRetryPolicy(cfg.DIAN.StatusRetries, time.Duration(cfg.DIAN.StatusWaitSec)*time.Second),
	)

	pipeline := billing.NewPipeline(xadesSigner, soapClient, txRunner, subRepo, numRepo, cfg.DIAN, log)
	numberingUC := usecase.NewNumberingUseCase(numRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
		// La radicación espera el polling de la DIAN (reintentos * espera).
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 90,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Pipeline:    pipeline,
		NumberingUC: numberingUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
