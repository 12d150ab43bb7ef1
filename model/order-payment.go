package model

import (
	"time"

	"gorm.io/datatypes"
)

// Payment là một lần thử thanh toán online, nối TxnRef với đơn hàng
type Payment struct {
	DTO
	OrderID       uint           `gorm:"index;not null" json:"orderId"`
	TxnRef        string         `gorm:"uniqueIndex;size:64;not null" json:"txnRef"`
	Amount        int64          `gorm:"not null" json:"amount"` // VND
	Method        string         `gorm:"size:20" json:"method"`
	Status        PaymentStatus  `gorm:"size:20;default:pending" json:"status"`
	ResponseCode  string         `gorm:"size:8" json:"responseCode"`
	TransactionNo string         `json:"transactionNo"`
	BankCode      string         `json:"bankCode"`
	PaidAt        *time.Time     `json:"paidAt,omitempty"`
	RawCallback   datatypes.JSON `json:"rawCallback,omitempty"` // tham số vnp_* đã xác thực chữ ký

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

type ReconciliationStatus string

const (
	ReconciliationOpen      ReconciliationStatus = "open"
	ReconciliationResolved  ReconciliationStatus = "resolved"
	ReconciliationAbandoned ReconciliationStatus = "abandoned"
)

const (
	ReasonOrderNotFound     = "order_not_found"
	ReasonIllegalTransition = "illegal_transition"
	ReasonStoreFailure      = "store_failure"
	ReasonOutOfStock        = "out_of_stock"
)

// PaymentReconciliation ghi lại giao dịch đã thành công ở cổng thanh toán
// nhưng chưa cập nhật được đơn hàng
type PaymentReconciliation struct {
	DTO
	TxnRef     string               `gorm:"uniqueIndex;size:64;not null" json:"txnRef"`
	OrderID    *uint                `json:"orderId,omitempty"`
	Amount     int64                `json:"amount"`
	Reason     string               `gorm:"size:32" json:"reason"`
	Attempts   int                  `json:"attempts"`
	Status     ReconciliationStatus `gorm:"size:16;index;default:open" json:"status"`
	LastError  string               `json:"lastError"`
	ResolvedAt *time.Time           `json:"resolvedAt,omitempty"`
}
