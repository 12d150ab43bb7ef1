package main

import (
	"ecogood/config"
	"ecogood/database"
	"ecogood/handler"
	"ecogood/helper"
	"ecogood/logging"
	"ecogood/model"
	"ecogood/router"
	"ecogood/utils"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	if err := logging.InitLogger(config.AppEnv()); err != nil {
		panic(err)
	}
	defer logging.Sync()

	// thiếu cấu hình VNPay thì không khởi động
	vnpCfg, err := config.LoadVNPay()
	if err != nil {
		logging.Fatal("invalid vnpay configuration", zap.Error(err))
	}
	vnpay, err := helper.NewVNPay(vnpCfg)
	if err != nil {
		logging.Fatal("invalid vnpay configuration", zap.Error(err))
	}

	database.ConnectDB()
	database.ConnectRedis(config.Config("REDIS_ADDR"))

	store := database.NewOrderStore(database.DB, config.Duration("ORDER_STORE_TIMEOUT", database.DefaultStoreTimeout))
	publisher := database.NewPublisher(database.Redis)
	frontendURL := strings.TrimRight(config.ConfigDefault("FRONTEND_URL", "http://localhost:5173"), "/")

	notifier := utils.NewMailNotifier(utils.MailConfig{
		Host:        config.Config("SMTP_HOST"),
		Port:        config.Int("SMTP_PORT", 587),
		Username:    config.Config("SMTP_USERNAME"),
		Password:    config.Config("SMTP_PASSWORD"),
		From:        config.ConfigDefault("SMTP_FROM", "EcoGood <no-reply@ecogood.vn>"),
		AdminEmail:  config.Config("ADMIN_EMAIL"),
		FrontendURL: frontendURL,
	})

	var bankAccount *model.BankAccount
	if acc, ok := config.LoadBankAccount(); ok {
		bankAccount = &acc
	} else {
		logging.Warn("bank transfer account is not configured")
	}

	orderHandler := handler.NewOrderHandler(store, notifier, publisher, publisher, bankAccount)
	paymentHandler := handler.NewPaymentHandler(vnpay, store, notifier, publisher, frontendURL)

	if err := helper.StartOrderExpiryScheduler(&helper.OrderExpiry{
		Store:     store,
		Publisher: publisher,
		TTL:       config.Duration("ORDER_PAYMENT_TTL", 30*time.Minute),
	}); err != nil {
		logging.Fatal("start order expiry scheduler failed", zap.Error(err))
	}
	defer helper.StopOrderExpiryScheduler()

	if err := helper.StartReconcileScheduler(&helper.Reconciler{
		Store:       store,
		Publisher:   publisher,
		Notifier:    notifier,
		MaxAttempts: config.Int("RECONCILE_MAX_ATTEMPTS", 5),
	}, config.Duration("RECONCILE_INTERVAL", 5*time.Minute)); err != nil {
		logging.Fatal("start reconcile scheduler failed", zap.Error(err))
	}
	defer helper.StopReconcileScheduler()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.ConfigDefault("CORS_ORIGINS", frontendURL),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie",
		MaxAge:           600,
	}))

	router.SetupRoutes(app, router.Handlers{
		Order:   orderHandler,
		Payment: paymentHandler,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logging.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logging.Error("server shutdown failed", zap.Error(err))
		}
	}()

	port := config.ConfigDefault("PORT", "8002")
	logging.Info("server started", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		logging.Error("server stopped", zap.Error(err))
	}
}
