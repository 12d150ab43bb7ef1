package database

import (
	"context"
	"ecogood/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RecordReconciliation lưu (hoặc cập nhật) giao dịch cần đối soát theo TxnRef.
// created=true khi đây là lần đầu ghi nhận giao dịch này.
func (s *OrderStore) RecordReconciliation(ctx context.Context, rec *model.PaymentReconciliation) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PaymentReconciliation
		err := tx.Where("txn_ref = ?", rec.TxnRef).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if rec.Status == "" {
				rec.Status = model.ReconciliationOpen
			}
			created = true
			return tx.Create(rec).Error
		}
		if err != nil {
			return err
		}
		// Đã đóng thì không mở lại
		if existing.Status != model.ReconciliationOpen {
			*rec = existing
			return nil
		}
		existing.Reason = rec.Reason
		existing.LastError = rec.LastError
		if rec.OrderID != nil {
			existing.OrderID = rec.OrderID
		}
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*rec = existing
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	return created, nil
}

func (s *OrderStore) ListReconciliations(ctx context.Context, status model.ReconciliationStatus, reason string, limit int) ([]model.PaymentReconciliation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Model(&model.PaymentReconciliation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if reason != "" {
		query = query.Where("reason = ?", reason)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recs []model.PaymentReconciliation
	if err := query.Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, storeErr(err)
	}
	return recs, nil
}

// FinishReconciliationAttempt ghi nhận một lần thử lại: resolved, còn open, hoặc abandoned
func (s *OrderStore) FinishReconciliationAttempt(ctx context.Context, id uint, status model.ReconciliationStatus, lastError string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"status":     status,
		"last_error": lastError,
		"updated_at": at,
	}
	if status == model.ReconciliationResolved {
		updates["resolved_at"] = at
	}
	err := s.db.WithContext(ctx).Model(&model.PaymentReconciliation{}).
		Where("id = ? AND status = ?", id, model.ReconciliationOpen).
		Updates(updates).Error
	return storeErr(err)
}
