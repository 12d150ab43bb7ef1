package router

import (
	"ecogood/handler"
	"ecogood/middleware"
	"ecogood/monitoring"
	"ecogood/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/metrics", monitoring.Handler())

	// VNPay gọi về 2 đường này, không đi qua /api
	vnp := app.Group("/vnpay", logger.New())
	vnp.Get("/return", h.Payment.VNPayReturn)
	vnp.Get("/ipn", h.Payment.VNPayIPN)
	vnp.Post("/ipn", h.Payment.VNPayIPN)

	api := app.Group("/api")
	v1 := api.Group("/v1", logger.New())

	product := v1.Group("/products")
	product.Get("/", handler.GetProducts)
	product.Get("/:slug", handler.GetProductBySlug)

	order := v1.Group("/orders")
	order.Post("/", validate.CreateOrder(), h.Order.CreateOrder)
	order.Get("/:code", validate.GetByCode("code"), h.Order.GetOrderDetail)
	order.Get("/:code/ws", validate.GetByCode("code"), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(h.Order.OrderWebsocket))

	payment := v1.Group("/payments")
	payment.Post("/vnpay", validate.CreateVNPayPayment(), h.Payment.CreateVNPayPayment)

	admin := v1.Group("/admin")
	admin.Post("/login", validate.AdminLogin(), handler.AdminLogin)
	admin.Post("/logout", middleware.Protected(), handler.AdminLogout)
	admin.Get("/orders", middleware.Protected(), validate.FilterOrder(), h.Order.ListOrders)
	admin.Patch("/orders/:code/status", middleware.Protected(), validate.GetByCode("code"), validate.UpdateOrderStatus(), h.Order.UpdateOrderStatus)
	admin.Get("/reconciliations", middleware.Protected(), h.Order.ListReconciliations)
}
