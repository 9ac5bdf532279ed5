package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"proposal-pipeline-backend/config"
	apiv1 "proposal-pipeline-backend/controllers/v1"
	"proposal-pipeline-backend/fiberlog"
	"proposal-pipeline-backend/initializers"
	"proposal-pipeline-backend/middleware"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const bodyLimit = 1024 * 1024

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.InitConfig()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("не задан JWT_SECRET")
	}
	services, err := initializers.InitAllServices(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("ошибка инициализации сервисов")
	}
	services.StartWorkers(ctx)

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
	})
	app.Use(fiberRecover.New())

	swaggerCfg := swagger.Config{
		Path:     "/swagger",
		FilePath: "./docs/swagger.json",
	}
	app.Use(swagger.New(swaggerCfg))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})))

	//api
	apiV1 := fiber.New()
	apiV1.Use(fiberlog.New(*services.LoggerConfig))
	app.Mount("/api/v1", apiV1)
	apiV1.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT",
	}))
	apiV1.Use(middleware.WithBodyLimit(bodyLimit))
	apiV1.Use(middleware.AuthorizationRequired(cfg.Auth.JWTSecret))
	apiV1.Use(middleware.PartyRequired())
	apiv1.InitProposalApiRouters(apiV1, services.Proposals)
	apiv1.InitGateReviewApiRouters(apiV1, services.GateReview)

	//админка
	admin := fiber.New()
	apiV1.Mount("/admin", admin)
	apiv1.InitSweepAdminApiRouters(admin, services.Sweeper)

	// gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-c:
		case <-ctx.Done():
			return
		}
		log.Info("Gracefully shutting down...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Error when try gracefully shutting down")
		}
		log.Info("Gracefully shutting down finished")
	}()

	// run HTTP server
	if err := app.Listen(fmt.Sprintf("%s:%d", cfg.App.ListenAddr, cfg.App.Port)); err != nil {
		log.WithError(err).Error("HTTP server stopped with error")
		cancel()
	}

	wg.Wait()
	services.Close()
	log.Info("HTTP server successfully stopped")
}
