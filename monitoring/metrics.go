package monitoring

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PaymentURLs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecogood_payment_urls_total",
		Help: "Payment redirect URLs built, by result",
	}, []string{"result"})

	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecogood_vnpay_callbacks_total",
		Help: "VNPay callbacks handled, by channel and outcome",
	}, []string{"channel", "outcome"})

	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecogood_payment_reconciliations_total",
		Help: "Verified payments that could not be applied to an order, by reason",
	}, []string{"reason"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecogood_orders_created_total",
		Help: "Orders created at checkout, by payment method",
	}, []string{"method"})
)

// Handler phục vụ endpoint /metrics cho Prometheus
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
