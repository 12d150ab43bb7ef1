package helper

import (
	"context"
	"ecogood/constants"
	"ecogood/logging"
	"ecogood/model"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type ExpiryStore interface {
	ExpiredPendingOrders(ctx context.Context, before time.Time, methods []string) ([]model.Order, error)
	UpdatePaymentAndOrderStatus(ctx context.Context, orderID uint, paymentStatus model.PaymentStatus, orderStatus model.OrderStatus, updatedAt time.Time) (bool, error)
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, change model.StatusChange)
}

// OrderExpiry hủy các đơn thanh toán online quá hạn mà chưa trả tiền
type OrderExpiry struct {
	Store     ExpiryStore
	Publisher StatusPublisher
	TTL       time.Duration
	Now       func() time.Time
}

var expiryScheduler *cron.Cron

// Run trả về số đơn đã hủy
func (e *OrderExpiry) Run(ctx context.Context) int {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	orders, err := e.Store.ExpiredPendingOrders(ctx, now.Add(-e.TTL), []string{
		constants.PAYMENT_METHOD_VNPAY,
		constants.PAYMENT_METHOD_BANK_TRANSFER,
	})
	if err != nil {
		logging.Error("query expired orders failed", zap.Error(err))
		return 0
	}

	expired := 0
	for _, order := range orders {
		applied, err := e.Store.UpdatePaymentAndOrderStatus(ctx, order.ID, model.PaymentFailed, model.OrderCancelled, now)
		if err != nil {
			// callback thanh toán đã chạy trước
			if errors.Is(err, constants.ErrIllegalTransition) {
				continue
			}
			logging.Error("expire order failed", zap.String("order", order.PublicCode), zap.Error(err))
			continue
		}
		if !applied {
			continue
		}
		expired++
		if e.Publisher != nil {
			e.Publisher.PublishStatus(ctx, model.StatusChange{
				OrderCode:     order.PublicCode,
				PaymentStatus: model.PaymentFailed,
				OrderStatus:   model.OrderCancelled,
				UpdatedAt:     now,
			})
		}
	}
	if expired > 0 {
		logging.Info("expired unpaid orders", zap.Int("count", expired))
	}
	return expired
}

func StartOrderExpiryScheduler(job *OrderExpiry) error {
	expiryScheduler = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := expiryScheduler.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		job.Run(ctx)
	})
	if err != nil {
		return err
	}

	expiryScheduler.Start()
	logging.Info("order expiry scheduler started", zap.Duration("ttl", job.TTL))
	return nil
}

func StopOrderExpiryScheduler() {
	if expiryScheduler != nil {
		<-expiryScheduler.Stop().Done()
		logging.Info("order expiry scheduler stopped")
	}
}
