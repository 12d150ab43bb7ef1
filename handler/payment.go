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
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentStore là phần order store mà luồng thanh toán cần
type PaymentStore interface {
	FindOrderByCode(ctx context.Context, code string) (*model.Order, error)
	FindOrderByReference(ctx context.Context, ref string) (*model.Order, *model.Payment, error)
	UpdatePaymentAndOrderStatus(ctx context.Context, orderID uint, paymentStatus model.PaymentStatus, orderStatus model.OrderStatus, updatedAt time.Time) (bool, error)
	CreatePaymentAttempt(ctx context.Context, payment *model.Payment) error
	MarkPaymentAttempt(ctx context.Context, txnRef string, status model.PaymentStatus, resp model.PaymentResponse, at time.Time) error
	RecordReconciliation(ctx context.Context, rec *model.PaymentReconciliation) (bool, error)
}

type Notifier interface {
	PaymentConfirmed(order model.Order)
	ReconciliationNeeded(rec model.PaymentReconciliation)
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, change model.StatusChange)
}

type PaymentHandler struct {
	vnpay       *helper.VNPay
	store       PaymentStore
	notifier    Notifier
	publisher   StatusPublisher
	frontendURL string
	now         func() time.Time
}

func NewPaymentHandler(vnpay *helper.VNPay, store PaymentStore, notifier Notifier, publisher StatusPublisher, frontendURL string) *PaymentHandler {
	return &PaymentHandler{
		vnpay:       vnpay,
		store:       store,
		notifier:    notifier,
		publisher:   publisher,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

type callbackOutcome int

const (
	outcomeConfirmed callbackOutcome = iota
	outcomeAlreadyConfirmed
	outcomeDeclined
)

func (o callbackOutcome) String() string {
	switch o {
	case outcomeConfirmed:
		return "confirmed"
	case outcomeAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "declined"
	}
}

type callbackResult struct {
	outcome callbackOutcome
	order   *model.Order
	resp    model.PaymentResponse
}

// CreateVNPayPayment tạo URL thanh toán VNPay cho đơn hàng đang chờ thanh toán
func (h *PaymentHandler) CreateVNPayPayment(c *fiber.Ctx) error {
	input, ok := c.Locals("input").(model.CreateVNPayPaymentInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}
	ctx := c.UserContext()

	order, err := h.store.FindOrderByCode(ctx, input.OrderCode)
	if err != nil {
		if errors.Is(err, constants.ErrOrderNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_ORDER_NOT_FOUND, nil)
		}
		logging.Error("find order for payment failed", zap.String("order", input.OrderCode), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	if order.PaymentMethod != constants.PAYMENT_METHOD_VNPAY ||
		order.PaymentStatus != model.PaymentPending ||
		order.OrderStatus != model.OrderPending {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_ORDER_NOT_PAYABLE, nil)
	}

	// TxnRef có unique index; nhiều instance có thể sinh trùng mã nên thử lại với mã mới
	var (
		paymentURL model.PaymentURL
		payment    model.Payment
	)
	for attempt := 0; attempt < 3; attempt++ {
		paymentURL, err = h.vnpay.BuildPaymentUrl(model.PaymentRequest{
			Amount:    order.AmountVND(),
			OrderInfo: fmt.Sprintf("Thanh toan don hang %s", order.PublicCode),
			ClientIP:  c.IP(),
		})
		if err != nil {
			monitoring.PaymentURLs.WithLabelValues("error").Inc()
			if errors.Is(err, constants.ErrInvalidRequest) {
				return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_ORDER_NOT_PAYABLE, nil)
			}
			logging.Error("build vnpay url failed", zap.String("order", order.PublicCode), zap.Error(err))
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_CREATE_PAYMENT_URL, nil)
		}

		payment = model.Payment{
			OrderID: order.ID,
			TxnRef:  paymentURL.TxnRef,
			Amount:  order.AmountVND(),
			Method:  constants.PAYMENT_METHOD_VNPAY,
		}
		err = h.store.CreatePaymentAttempt(ctx, &payment)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		logging.Warn("duplicate txn ref, retrying", zap.String("txn_ref", paymentURL.TxnRef))
	}
	if err != nil {
		monitoring.PaymentURLs.WithLabelValues("error").Inc()
		logging.Error("create payment attempt failed", zap.String("order", order.PublicCode), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_CREATE_PAYMENT_URL, nil)
	}
	monitoring.PaymentURLs.WithLabelValues("ok").Inc()
	logging.Info("vnpay payment created",
		zap.String("order", order.PublicCode),
		zap.String("txn_ref", payment.TxnRef),
		zap.Int64("amount", payment.Amount),
	)

	if c.Query("redirect") == "true" {
		return c.Redirect(paymentURL.URL, fiber.StatusSeeOther)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"paymentUrl": paymentURL.URL,
		"txnRef":     paymentURL.TxnRef,
		"orderCode":  order.PublicCode,
	})
}

// VNPayReturn xử lý trình duyệt quay về từ VNPay. Mọi lỗi đều về trang thất bại chung.
func (h *PaymentHandler) VNPayReturn(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		monitoring.Callbacks.WithLabelValues("return", "bad_query").Inc()
		return c.Redirect(h.failureURL())
	}

	result, err := h.processCallback(c.UserContext(), query)
	if err != nil {
		monitoring.Callbacks.WithLabelValues("return", errorLabel(err)).Inc()
		logging.Warn("vnpay return rejected", zap.String("txn_ref", query.Get("vnp_TxnRef")), zap.Error(err))
		return c.Redirect(h.failureURL())
	}
	monitoring.Callbacks.WithLabelValues("return", result.outcome.String()).Inc()

	if result.outcome == outcomeDeclined {
		return c.Redirect(h.failureURL())
	}
	return c.Redirect(h.successURL(result.order.PublicCode))
}

// VNPayIPN là kênh server-to-server, trả JSON theo chuẩn RspCode của VNPay
func (h *PaymentHandler) VNPayIPN(c *fiber.Ctx) error {
	raw := string(c.Request().URI().QueryString())
	if raw == "" {
		raw = string(c.Body())
	}
	query, err := url.ParseQuery(raw)
	if err != nil {
		monitoring.Callbacks.WithLabelValues("ipn", "bad_query").Inc()
		return c.JSON(model.IPNUnknownError)
	}

	result, err := h.processCallback(c.UserContext(), query)
	if err != nil {
		monitoring.Callbacks.WithLabelValues("ipn", errorLabel(err)).Inc()
		logging.Warn("vnpay ipn rejected", zap.String("txn_ref", query.Get("vnp_TxnRef")), zap.Error(err))
		return c.JSON(ipnResponseFor(err))
	}
	monitoring.Callbacks.WithLabelValues("ipn", result.outcome.String()).Inc()

	if result.outcome == outcomeAlreadyConfirmed {
		return c.JSON(model.IPNAlreadyConfirmed)
	}
	return c.JSON(model.IPNConfirmSuccess)
}

func ipnResponseFor(err error) model.IPNResponse {
	switch {
	case errors.Is(err, constants.ErrSignatureMismatch):
		return model.IPNInvalidSignature
	case errors.Is(err, constants.ErrOrderNotFound):
		return model.IPNOrderNotFound
	case errors.Is(err, constants.ErrAmountMismatch):
		return model.IPNInvalidAmount
	default:
		// chưa ghi nhận được thanh toán (lỗi DB, đơn đã hủy, hết hàng): giao dịch đã vào đối soát
		return model.IPNUnknownError
	}
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, constants.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, constants.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, constants.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, constants.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, constants.ErrInsufficientStock):
		return "out_of_stock"
	case errors.Is(err, constants.ErrStoreUpdateFailure):
		return "store_failure"
	case errors.Is(err, constants.ErrConfiguration):
		return "configuration"
	}
	return "invalid"
}

// processCallback: xác thực chữ ký -> tìm đơn theo TxnRef -> đối chiếu số tiền -> cập nhật trạng thái.
// Chữ ký sai thì dừng trước mọi thao tác ghi.
func (h *PaymentHandler) processCallback(ctx context.Context, query url.Values) (callbackResult, error) {
	resp, err := h.vnpay.VerifyReturnUrl(query)
	if err != nil {
		return callbackResult{}, err
	}
	result := callbackResult{resp: resp, outcome: outcomeDeclined}

	order, payment, err := h.store.FindOrderByReference(ctx, resp.TxnRef)
	if err != nil {
		if resp.IsSuccess() {
			h.reconcile(ctx, resp, nil, err)
		}
		return result, err
	}
	result.order = order

	if resp.Amount != payment.Amount {
		logging.Error("vnpay amount mismatch",
			zap.String("txn_ref", resp.TxnRef),
			zap.Int64("expected", payment.Amount),
			zap.Int64("got", resp.Amount),
		)
		return result, fmt.Errorf("%w: txn %s", constants.ErrAmountMismatch, resp.TxnRef)
	}

	now := h.now()
	if !resp.IsSuccess() {
		if err := h.store.MarkPaymentAttempt(ctx, resp.TxnRef, model.PaymentFailed, resp, now); err != nil {
			logging.Error("mark payment attempt failed", zap.String("txn_ref", resp.TxnRef), zap.Error(err))
		}
		logging.Info("vnpay payment declined",
			zap.String("txn_ref", resp.TxnRef),
			zap.String("code", resp.ResponseCode),
			zap.String("reason", model.VNPayMessage(resp.ResponseCode)),
		)
		return result, nil
	}

	if order.PaymentStatus == model.PaymentConfirmed {
		result.outcome = outcomeAlreadyConfirmed
		return result, nil
	}

	applied, err := h.store.UpdatePaymentAndOrderStatus(ctx, order.ID, model.PaymentConfirmed, model.OrderProcessing, now)
	if err != nil {
		h.reconcile(ctx, resp, &order.ID, err)
		return result, err
	}
	if err := h.store.MarkPaymentAttempt(ctx, resp.TxnRef, model.PaymentConfirmed, resp, now); err != nil {
		logging.Error("mark payment attempt failed", zap.String("txn_ref", resp.TxnRef), zap.Error(err))
	}
	if !applied {
		result.outcome = outcomeAlreadyConfirmed
		return result, nil
	}

	order.PaymentStatus = model.PaymentConfirmed
	order.OrderStatus = model.OrderProcessing
	order.UpdatedAt = now
	order.PaidAt = &now
	result.outcome = outcomeConfirmed

	logging.Info("vnpay payment confirmed", zap.String("order", order.PublicCode), zap.String("txn_ref", resp.TxnRef))
	h.afterConfirmed(ctx, order)
	return result, nil
}

// afterConfirmed chỉ chạy với lần xác nhận thực sự được áp dụng
func (h *PaymentHandler) afterConfirmed(ctx context.Context, order *model.Order) {
	if h.publisher != nil {
		h.publisher.PublishStatus(ctx, model.StatusChange{
			OrderCode:     order.PublicCode,
			PaymentStatus: order.PaymentStatus,
			OrderStatus:   order.OrderStatus,
			UpdatedAt:     order.UpdatedAt,
		})
	}
	if h.notifier == nil {
		return
	}
	full, err := h.store.FindOrderByCode(ctx, order.PublicCode)
	if err != nil {
		logging.Warn("reload order for confirmation email failed", zap.String("order", order.PublicCode), zap.Error(err))
		full = order
	}
	h.notifier.PaymentConfirmed(*full)
}

// reconcile lưu giao dịch đã trừ tiền ở VNPay nhưng chưa cập nhật được đơn
func (h *PaymentHandler) reconcile(ctx context.Context, resp model.PaymentResponse, orderID *uint, cause error) {
	reason := model.ReasonStoreFailure
	switch {
	case errors.Is(cause, constants.ErrOrderNotFound):
		reason = model.ReasonOrderNotFound
	case errors.Is(cause, constants.ErrIllegalTransition):
		reason = model.ReasonIllegalTransition
	case errors.Is(cause, constants.ErrInsufficientStock):
		reason = model.ReasonOutOfStock
	}

	rec := model.PaymentReconciliation{
		TxnRef:    resp.TxnRef,
		OrderID:   orderID,
		Amount:    resp.Amount,
		Reason:    reason,
		LastError: cause.Error(),
	}

	// context của request có thể đã hết hạn (chính là nguyên nhân lỗi)
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	created, err := h.store.RecordReconciliation(recordCtx, &rec)
	if err != nil {
		logging.Error("record reconciliation failed",
			zap.String("txn_ref", resp.TxnRef),
			zap.Int64("amount", resp.Amount),
			zap.String("reason", reason),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	monitoring.Reconciliations.WithLabelValues(reason).Inc()
	logging.Error("verified payment needs reconciliation",
		zap.String("txn_ref", resp.TxnRef),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	if created && h.notifier != nil {
		h.notifier.ReconciliationNeeded(rec)
	}
}

func (h *PaymentHandler) successURL(orderCode string) string {
	return fmt.Sprintf("%s/checkout/success?orderCode=%s", h.frontendURL, url.QueryEscape(orderCode))
}

func (h *PaymentHandler) failureURL() string {
	return h.frontendURL + "/checkout/failed"
}
