package helper

import (
	"context"
	"ecogood/constants"
	"ecogood/logging"
	"ecogood/model"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type ReconcileStore interface {
	ListReconciliations(ctx context.Context, status model.ReconciliationStatus, reason string, limit int) ([]model.PaymentReconciliation, error)
	FinishReconciliationAttempt(ctx context.Context, id uint, status model.ReconciliationStatus, lastError string, at time.Time) error
	FindOrderByCode(ctx context.Context, code string) (*model.Order, error)
	FindOrderByReference(ctx context.Context, ref string) (*model.Order, *model.Payment, error)
	UpdatePaymentAndOrderStatus(ctx context.Context, orderID uint, paymentStatus model.PaymentStatus, orderStatus model.OrderStatus, updatedAt time.Time) (bool, error)
	MarkPaymentAttempt(ctx context.Context, txnRef string, status model.PaymentStatus, resp model.PaymentResponse, at time.Time) error
}

type ConfirmationNotifier interface {
	PaymentConfirmed(order model.Order)
}

// Reconciler thử lại các giao dịch VNPay thành công nhưng lỗi khi ghi DB.
// Chỉ xử lý lý do store_failure, các lý do khác cần admin xem xét.
type Reconciler struct {
	Store       ReconcileStore
	Publisher   StatusPublisher
	Notifier    ConfirmationNotifier
	MaxAttempts int
	BatchSize   int
	Now         func() time.Time
}

var reconcileScheduler gocron.Scheduler

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run trả về số giao dịch đã xử lý xong
func (r *Reconciler) Run(ctx context.Context) int {
	batch := r.BatchSize
	if batch <= 0 {
		batch = 50
	}
	recs, err := r.Store.ListReconciliations(ctx, model.ReconciliationOpen, model.ReasonStoreFailure, batch)
	if err != nil {
		logging.Error("list open reconciliations failed", zap.Error(err))
		return 0
	}

	resolved := 0
	for _, rec := range recs {
		status, lastErr := r.retry(ctx, rec)
		if status == model.ReconciliationOpen && r.MaxAttempts > 0 && rec.Attempts+1 >= r.MaxAttempts {
			status = model.ReconciliationAbandoned
		}
		if err := r.Store.FinishReconciliationAttempt(ctx, rec.ID, status, lastErr, r.now()); err != nil {
			logging.Error("finish reconciliation attempt failed", zap.String("txn_ref", rec.TxnRef), zap.Error(err))
			continue
		}
		switch status {
		case model.ReconciliationResolved:
			resolved++
			logging.Info("reconciliation resolved", zap.String("txn_ref", rec.TxnRef))
		case model.ReconciliationAbandoned:
			logging.Error("reconciliation abandoned", zap.String("txn_ref", rec.TxnRef), zap.String("last_error", lastErr))
		}
	}
	return resolved
}

func (r *Reconciler) retry(ctx context.Context, rec model.PaymentReconciliation) (model.ReconciliationStatus, string) {
	order, payment, err := r.Store.FindOrderByReference(ctx, rec.TxnRef)
	if err != nil {
		if errors.Is(err, constants.ErrOrderNotFound) {
			return model.ReconciliationAbandoned, err.Error()
		}
		return model.ReconciliationOpen, err.Error()
	}
	if payment.Amount != rec.Amount {
		return model.ReconciliationAbandoned, constants.ErrAmountMismatch.Error()
	}
	if order.PaymentStatus == model.PaymentConfirmed {
		return model.ReconciliationResolved, ""
	}

	now := r.now()
	applied, err := r.Store.UpdatePaymentAndOrderStatus(ctx, order.ID, model.PaymentConfirmed, model.OrderProcessing, now)
	if err != nil {
		if errors.Is(err, constants.ErrIllegalTransition) || errors.Is(err, constants.ErrInsufficientStock) {
			return model.ReconciliationAbandoned, err.Error()
		}
		return model.ReconciliationOpen, err.Error()
	}

	resp := model.PaymentResponse{TxnRef: rec.TxnRef, Amount: rec.Amount, ResponseCode: model.VNPayCodeSuccess}
	if err := r.Store.MarkPaymentAttempt(ctx, rec.TxnRef, model.PaymentConfirmed, resp, now); err != nil {
		logging.Warn("mark payment attempt failed", zap.String("txn_ref", rec.TxnRef), zap.Error(err))
	}

	if applied {
		if r.Publisher != nil {
			r.Publisher.PublishStatus(ctx, model.StatusChange{
				OrderCode:     order.PublicCode,
				PaymentStatus: model.PaymentConfirmed,
				OrderStatus:   model.OrderProcessing,
				UpdatedAt:     now,
			})
		}
		if r.Notifier != nil {
			if full, err := r.Store.FindOrderByCode(ctx, order.PublicCode); err == nil {
				r.Notifier.PaymentConfirmed(*full)
			}
		}
	}
	return model.ReconciliationResolved, ""
}

func StartReconcileScheduler(r *Reconciler, interval time.Duration) error {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(VNPayLocation),
	)
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			r.Run(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	reconcileScheduler = s
	s.Start()
	logging.Info("reconcile scheduler started", zap.Duration("interval", interval), zap.Int("max_attempts", r.MaxAttempts))
	return nil
}

func StopReconcileScheduler() {
	if reconcileScheduler != nil {
		if err := reconcileScheduler.Shutdown(); err != nil {
			logging.Warn("reconcile scheduler shutdown failed", zap.Error(err))
		}
	}
}
