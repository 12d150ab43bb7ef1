package handler

import (
	"context"
	"ecogood/constants"
	"ecogood/helper"
	"ecogood/logging"
	"ecogood/model"
	"ecogood/monitoring"
	"ecogood/utils"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	FindOrderByCode(ctx context.Context, code string) (*model.Order, error)
	UpdatePaymentAndOrderStatus(ctx context.Context, orderID uint, paymentStatus model.PaymentStatus, orderStatus model.OrderStatus, updatedAt time.Time) (bool, error)
	ListOrders(ctx context.Context, filter model.FilterOrder) ([]model.Order, int64, error)
	ListReconciliations(ctx context.Context, status model.ReconciliationStatus, reason string, limit int) ([]model.PaymentReconciliation, error)
}

type StatusSubscriber interface {
	Subscribe(ctx context.Context, orderCode string) *redis.PubSub
}

type OrderHandler struct {
	store       OrderStore
	notifier    Notifier
	publisher   StatusPublisher
	subscriber  StatusSubscriber
	bankAccount *model.BankAccount
	now         func() time.Time
}

func NewOrderHandler(store OrderStore, notifier Notifier, publisher StatusPublisher, subscriber StatusSubscriber, bankAccount *model.BankAccount) *OrderHandler {
	return &OrderHandler{
		store:       store,
		notifier:    notifier,
		publisher:   publisher,
		subscriber:  subscriber,
		bankAccount: bankAccount,
		now:         time.Now,
	}
}

func newOrderCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

// CreateOrder tạo đơn hàng từ giỏ hàng, giá được chốt theo sản phẩm hiện tại
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	input, ok := c.Locals("input").(model.CreateOrderInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}

	var order model.Order
	if err := copier.Copy(&order, &input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		order.ID = 0
		order.PublicCode = newOrderCode()
		err = h.store.CreateOrder(c.UserContext(), &order)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, constants.ErrProductNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_PRODUCT_NOT_FOUND, err)
	case errors.Is(err, constants.ErrInsufficientStock):
		return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_OUT_OF_STOCK, err)
	default:
		logging.Error("create order failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	monitoring.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()
	logging.Info("order created",
		zap.String("order", order.PublicCode),
		zap.String("method", order.PaymentMethod),
		zap.Int64("amount", order.AmountVND()),
	)
	return utils.SuccessResponse(c, fiber.StatusCreated, h.orderView(&order))
}

// GetOrderDetail tra cứu đơn theo mã, kèm QR mã đơn và QR chuyển khoản nếu còn chờ thanh toán
func (h *OrderHandler) GetOrderDetail(c *fiber.Ctx) error {
	code, _ := c.Locals("orderCode").(string)
	order, err := h.store.FindOrderByCode(c.UserContext(), code)
	if err != nil {
		if errors.Is(err, constants.ErrOrderNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_ORDER_NOT_FOUND, nil)
		}
		logging.Error("find order failed", zap.String("order", code), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, h.orderView(order))
}

func (h *OrderHandler) orderView(order *model.Order) fiber.Map {
	view := fiber.Map{"order": order}

	if qr, err := utils.QRDataURL(order.PublicCode, 256); err == nil {
		view["qrCode"] = qr
	} else {
		logging.Warn("generate order qr failed", zap.String("order", order.PublicCode), zap.Error(err))
	}

	if order.PaymentMethod == constants.PAYMENT_METHOD_BANK_TRANSFER &&
		order.PaymentStatus == model.PaymentPending &&
		h.bankAccount != nil {
		description := helper.TransferDescription(order.PublicCode)
		view["bankTransfer"] = fiber.Map{
			"bankId":      h.bankAccount.BankID,
			"accountNo":   h.bankAccount.AccountNo,
			"accountName": h.bankAccount.AccountName,
			"amount":      order.AmountVND(),
			"description": description,
			"qrUrl":       helper.BuildBankTransferQRURL(*h.bankAccount, order.AmountVND(), description),
		}
	}
	return view
}

// OrderWebsocket gửi trạng thái hiện tại rồi đẩy mọi thay đổi của đơn qua Redis
func (h *OrderHandler) OrderWebsocket(c *websocket.Conn) {
	defer c.Close()

	code, _ := c.Locals("orderCode").(string)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	order, err := h.store.FindOrderByCode(ctx, code)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": constants.ERROR_ORDER_NOT_FOUND})
		return
	}
	if err := c.WriteJSON(model.StatusChange{
		OrderCode:     order.PublicCode,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		UpdatedAt:     order.UpdatedAt,
	}); err != nil {
		return
	}
	if order.OrderStatus.IsTerminal() || h.subscriber == nil {
		return
	}

	pubsub := h.subscriber.Subscribe(ctx, code)
	if pubsub == nil {
		return
	}
	defer pubsub.Close()

	// client đóng kết nối -> dừng vòng lặp
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	channel := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-channel:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}

// ListOrders danh sách đơn cho admin
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	filter, ok := c.Locals("filter").(model.FilterOrder)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}
	orders, total, err := h.store.ListOrders(c.UserContext(), filter)
	if err != nil {
		logging.Error("list orders failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       orders,
		Limit:      filter.Limit,
		Page:       filter.Page,
		TotalCount: total,
	})
}

// UpdateOrderStatus admin chuyển trạng thái đơn (giao hàng, hủy, xác nhận chuyển khoản...)
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	input, ok := c.Locals("input").(model.UpdateOrderStatusInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}
	code, _ := c.Locals("orderCode").(string)
	ctx := c.UserContext()

	order, err := h.store.FindOrderByCode(ctx, code)
	if err != nil {
		if errors.Is(err, constants.ErrOrderNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_ORDER_NOT_FOUND, nil)
		}
		logging.Error("find order failed", zap.String("order", code), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	var paymentStatus model.PaymentStatus
	if input.PaymentStatus != nil {
		paymentStatus = *input.PaymentStatus
	}
	var orderStatus model.OrderStatus
	if input.OrderStatus != nil {
		orderStatus = *input.OrderStatus
	}

	// xác nhận thanh toán thủ công thì đơn vào processing luôn
	if paymentStatus == model.PaymentConfirmed && orderStatus == "" && order.OrderStatus == model.OrderPending {
		orderStatus = model.OrderProcessing
	}

	wasConfirmed := order.PaymentStatus == model.PaymentConfirmed
	now := h.now()
	applied, err := h.store.UpdatePaymentAndOrderStatus(ctx, order.ID, paymentStatus, orderStatus, now)
	if err != nil {
		if errors.Is(err, constants.ErrIllegalTransition) {
			return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_ILLEGAL_TRANSITION, err)
		}
		if errors.Is(err, constants.ErrInsufficientStock) {
			return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_OUT_OF_STOCK, err)
		}
		logging.Error("update order status failed", zap.String("order", code), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	updated, err := h.store.FindOrderByCode(ctx, code)
	if err != nil {
		logging.Error("reload order failed", zap.String("order", code), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	if applied {
		logging.Info("order status updated by admin",
			zap.String("order", code),
			zap.String("payment_status", string(updated.PaymentStatus)),
			zap.String("order_status", string(updated.OrderStatus)),
		)
		if h.publisher != nil {
			h.publisher.PublishStatus(ctx, model.StatusChange{
				OrderCode:     updated.PublicCode,
				PaymentStatus: updated.PaymentStatus,
				OrderStatus:   updated.OrderStatus,
				UpdatedAt:     updated.UpdatedAt,
			})
		}
		if !wasConfirmed && updated.PaymentStatus == model.PaymentConfirmed && h.notifier != nil {
			h.notifier.PaymentConfirmed(*updated)
		}
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"order": updated, "applied": applied})
}

// ListReconciliations giao dịch VNPay cần đối soát
func (h *OrderHandler) ListReconciliations(c *fiber.Ctx) error {
	status := model.ReconciliationStatus(c.Query("status", string(model.ReconciliationOpen)))
	reason := c.Query("reason")
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	recs, err := h.store.ListReconciliations(c.UserContext(), status, reason, limit)
	if err != nil {
		logging.Error("list reconciliations failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, recs)
}
