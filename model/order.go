package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	DTO
	PublicCode    string          `gorm:"uniqueIndex;size:20" json:"orderCode"` // ORD-XXXXXXXX
	CustomerName  string          `gorm:"not null" json:"customerName"`
	Phone         string          `gorm:"not null" json:"phone"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	Note          string          `json:"note"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"totalAmount"`
	PaymentMethod string          `gorm:"size:20" json:"paymentMethod"` // cod, bank_transfer, vnpay
	PaymentStatus PaymentStatus   `gorm:"size:20;index;default:pending" json:"paymentStatus"`
	OrderStatus   OrderStatus     `gorm:"size:20;index;default:pending" json:"orderStatus"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CancelledAt   *time.Time      `json:"cancelledAt,omitempty"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
}

type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index;not null" json:"orderId"`
	ProductID   uint            `gorm:"not null" json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Quantity    int             `gorm:"not null" json:"quantity"`
}

// AmountVND trả về tổng tiền dạng số nguyên VND
func (o Order) AmountVND() int64 {
	return o.TotalAmount.Round(0).IntPart()
}

type CreateOrderItemInput struct {
	ProductID uint `json:"productId" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gte=1,lte=100"`
}

type CreateOrderInput struct {
	CustomerName  string                 `json:"customerName" validate:"required,max=255"`
	Phone         string                 `json:"phone" validate:"required,min=8,max=15"`
	Email         string                 `json:"email" validate:"omitempty,email"`
	Address       string                 `json:"address" validate:"required"`
	Note          string                 `json:"note" validate:"max=1000"`
	PaymentMethod string                 `json:"paymentMethod" validate:"required,oneof=cod bank_transfer vnpay"`
	Items         []CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusInput struct {
	OrderStatus   *OrderStatus   `json:"orderStatus"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
}

type FilterOrder struct {
	Pagination
	PaymentStatus string `query:"paymentStatus"`
	OrderStatus   string `query:"orderStatus"`
}

// StatusChange là payload phát qua Redis khi trạng thái đơn thay đổi
type StatusChange struct {
	OrderCode     string        `json:"orderCode"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
