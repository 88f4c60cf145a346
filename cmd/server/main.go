package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/config"
	"github.com/muzhihao1/yeslocker-server/internal/database"
	"github.com/muzhihao1/yeslocker-server/internal/ratelimit"
	"github.com/muzhihao1/yeslocker-server/internal/routes"
	"github.com/muzhihao1/yeslocker-server/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	var sms services.SmsSender
	if cfg.IsProduction() && cfg.SmsAPIURL != "" {
		sms = services.NewSmsService(cfg.SmsAPIURL, cfg.SmsAPIKey, cfg.SmsSenderID, nil)
	} else {
		log.Println("SMS provider not configured or non-production environment, using mock sender")
		sms = &services.MockSmsSender{}
	}

	notify := services.NewNotifyService(db, sms)
	otpLimiter := ratelimit.NewLimiter(5, time.Minute) // per ip+phone
	auth := services.NewAuthService(db, cfg, notify, otpLimiter)
	applications := services.NewApplicationService(db, notify)
	reminders := services.NewReminderService(db, notify)

	app := fiber.New(fiber.Config{
		AppName:      "YesLocker Server",
		ErrorHandler: apperrors.ErrorHandler(cfg.IsProduction()),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(corsConfig(cfg)))

	routes.Register(app, routes.Deps{
		DB:           db,
		Cfg:          cfg,
		Auth:         auth,
		Applications: applications,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reminders.Run(ctx, cfg.SweepInterval)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("Metrics listening on :%s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			log.Printf("metrics listener error: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	if cfg.IsProduction() && len(cfg.AllowedOrigins) > 0 {
		return cors.Config{
			AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}
	}
	return cors.Config{}
}
