package database

import (
	"context"
	"ecogood/constants"
	"ecogood/model"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultStoreTimeout = 5 * time.Second

// OrderStore gom các thao tác đọc/ghi đơn hàng và lần thanh toán.
// Mọi thay đổi trạng thái đều đi qua UpdatePaymentAndOrderStatus.
type OrderStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewOrderStore(db *gorm.DB, timeout time.Duration) *OrderStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &OrderStore{db: db, timeout: timeout}
}

func (s *OrderStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr giữ nguyên lỗi nghiệp vụ, các lỗi DB còn lại (kể cả timeout) là StoreUpdateFailure
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return constants.ErrOrderNotFound
	case errors.Is(err, constants.ErrOrderNotFound),
		errors.Is(err, constants.ErrIllegalTransition),
		errors.Is(err, constants.ErrProductNotFound),
		errors.Is(err, constants.ErrInsufficientStock),
		errors.Is(err, constants.ErrStoreUpdateFailure):
		return err
	}
	return fmt.Errorf("%w: %w", constants.ErrStoreUpdateFailure, err)
}

// CreateOrder chốt giá từng dòng theo sản phẩm hiện tại và tính tổng tiền.
// Tồn kho chỉ được kiểm tra ở đây, việc trừ kho diễn ra khi đơn chuyển sang processing.
func (s *OrderStore) CreateOrder(ctx context.Context, order *model.Order) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		for i := range order.Items {
			item := &order.Items[i]
			var product model.Product
			if err := tx.Where("id = ? AND is_active = ?", item.ProductID, true).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: id %d", constants.ErrProductNotFound, item.ProductID)
				}
				return err
			}
			if product.Stock < item.Quantity {
				return fmt.Errorf("%w: %s", constants.ErrInsufficientStock, product.Name)
			}
			item.ProductName = product.Name
			item.UnitPrice = product.Price
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order.TotalAmount = total
		order.PaymentStatus = model.PaymentPending
		order.OrderStatus = model.OrderPending
		return tx.Create(order).Error
	})
	return storeErr(err)
}

func (s *OrderStore) FindOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var order model.Order
	if err := s.db.WithContext(ctx).Preload("Items").Where("public_code = ?", code).First(&order).Error; err != nil {
		return nil, storeErr(err)
	}
	return &order, nil
}

// FindOrderByReference tìm lần thanh toán theo vnp_TxnRef và đơn hàng của nó
func (s *OrderStore) FindOrderByReference(ctx context.Context, ref string) (*model.Order, *model.Payment, error) {
	if ref == "" {
		return nil, nil, constants.ErrOrderNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var payment model.Payment
	if err := s.db.WithContext(ctx).Preload("Order").Where("txn_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, nil, storeErr(err)
	}
	if payment.Order.ID == 0 {
		return nil, nil, constants.ErrOrderNotFound
	}
	order := payment.Order
	return &order, &payment, nil
}

// UpdatePaymentAndOrderStatus chuyển trạng thái theo bảng chuyển hợp lệ.
// Giá trị rỗng nghĩa là giữ nguyên chiều đó. applied=false khi đơn đã ở trạng thái đích
// hoặc một request khác đã cập nhật trước (compare-and-set không khớp).
// Khi đơn vào processing, tồn kho được trừ trong cùng transaction; không đủ hàng thì
// rollback và trả ErrInsufficientStock. Hủy đơn đang processing thì hoàn lại kho.
func (s *OrderStore) UpdatePaymentAndOrderStatus(ctx context.Context, orderID uint, paymentStatus model.PaymentStatus, orderStatus model.OrderStatus, updatedAt time.Time) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}

		nextPayment := order.PaymentStatus
		if paymentStatus != "" {
			nextPayment = paymentStatus
		}
		nextOrder := order.OrderStatus
		if orderStatus != "" {
			nextOrder = orderStatus
		}
		if nextPayment == order.PaymentStatus && nextOrder == order.OrderStatus {
			return nil
		}
		if nextPayment != order.PaymentStatus && !order.PaymentStatus.CanTransition(nextPayment) {
			return fmt.Errorf("%w: payment %s -> %s", constants.ErrIllegalTransition, order.PaymentStatus, nextPayment)
		}
		if nextOrder != order.OrderStatus && !order.OrderStatus.CanTransition(nextOrder) {
			return fmt.Errorf("%w: order %s -> %s", constants.ErrIllegalTransition, order.OrderStatus, nextOrder)
		}

		updates := map[string]any{
			"payment_status": nextPayment,
			"order_status":   nextOrder,
			"updated_at":     updatedAt,
		}
		if nextPayment == model.PaymentConfirmed && order.PaymentStatus != model.PaymentConfirmed {
			updates["paid_at"] = updatedAt
		}
		if nextOrder == model.OrderCancelled {
			updates["cancelled_at"] = updatedAt
		}

		res := tx.Model(&model.Order{}).
			Where("id = ? AND payment_status = ? AND order_status = ?", order.ID, order.PaymentStatus, order.OrderStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		switch {
		case order.OrderStatus == model.OrderPending && nextOrder == model.OrderProcessing:
			if err := reserveStock(tx, order.Items); err != nil {
				return err
			}
		case order.OrderStatus == model.OrderProcessing && nextOrder == model.OrderCancelled:
			if err := releaseStock(tx, order.Items); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	return applied, nil
}

// reserveStock trừ kho có điều kiện, tồn kho không bao giờ âm
func reserveStock(tx *gorm.DB, items []model.OrderItem) error {
	for _, item := range items {
		res := tx.Model(&model.Product{}).
			Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: product %d", constants.ErrInsufficientStock, item.ProductID)
		}
	}
	return nil
}

func releaseStock(tx *gorm.DB, items []model.OrderItem) error {
	for _, item := range items {
		if err := tx.Model(&model.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderStore) CreatePaymentAttempt(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payment.Status = model.PaymentPending
	return storeErr(s.db.WithContext(ctx).Create(payment).Error)
}

// MarkPaymentAttempt ghi kết quả từ cổng thanh toán, chỉ với lần thử còn pending
func (s *OrderStore) MarkPaymentAttempt(ctx context.Context, txnRef string, status model.PaymentStatus, resp model.PaymentResponse, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updates := map[string]any{
		"status":         status,
		"response_code":  resp.ResponseCode,
		"transaction_no": resp.TransactionNo,
		"bank_code":      resp.BankCode,
		"updated_at":     at,
	}
	if status == model.PaymentConfirmed {
		updates["paid_at"] = at
	}
	if len(resp.Params) > 0 {
		raw, err := json.Marshal(resp.Params)
		if err != nil {
			return err
		}
		updates["raw_callback"] = datatypes.JSON(raw)
	}
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("txn_ref = ? AND status = ?", txnRef, model.PaymentPending).
		Updates(updates).Error
	return storeErr(err)
}

func (s *OrderStore) ListOrders(ctx context.Context, filter model.FilterOrder) ([]model.Order, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	base := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&model.Order{})
		if filter.PaymentStatus != "" {
			query = query.Where("payment_status = ?", filter.PaymentStatus)
		}
		if filter.OrderStatus != "" {
			query = query.Where("order_status = ?", filter.OrderStatus)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, storeErr(err)
	}

	var orders []model.Order
	if err := applyPagination(base(), filter.Limit, filter.Page).
		Preload("Items").
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return nil, 0, storeErr(err)
	}
	return orders, total, nil
}

// ExpiredPendingOrders trả về đơn thanh toán online vẫn pending tạo trước `before`
func (s *OrderStore) ExpiredPendingOrders(ctx context.Context, before time.Time, methods []string) ([]model.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("payment_status = ? AND order_status = ? AND payment_method IN ? AND created_at < ?",
			model.PaymentPending, model.OrderPending, methods, before).
		Find(&orders).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return orders, nil
}

func applyPagination(query *gorm.DB, limit, page *int) *gorm.DB {
	if limit != nil && *limit > 0 && page != nil && *page >= 1 {
		query = query.Limit(*limit).Offset(*limit * (*page - 1))
	}
	return query
}
