package utils

import (
	"bytes"
	"ecogood/logging"
	"ecogood/model"
	"fmt"
	"html/template"
	"io"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	AdminEmail   string
	FrontendURL  string
	TemplatePath string
}

// OrderConfirmationData dữ liệu cho template email
type OrderConfirmationData struct {
	OrderCode     string
	CustomerName  string
	Items         []OrderConfirmationItem
	TotalAmount   string
	PaymentMethod string
	PaidAt        string
	DetailLink    string
}

type OrderConfirmationItem struct {
	Name     string
	Quantity int
	Subtotal string
}

// MailNotifier gửi email xác nhận cho khách (gomail) và cảnh báo đối soát cho admin
type MailNotifier struct {
	cfg  MailConfig
	send func(m *gomail.Message) error
}

func NewMailNotifier(cfg MailConfig) *MailNotifier {
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = "templates/order_confirmation.html"
	}
	n := &MailNotifier{cfg: cfg}
	n.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return d.DialAndSend(m)
	}
	return n
}

func (n *MailNotifier) enabled() bool {
	return n != nil && n.cfg.Host != ""
}

// PaymentConfirmed gửi email xác nhận đơn hàng (async)
func (n *MailNotifier) PaymentConfirmed(order model.Order) {
	if !n.enabled() || order.Email == "" {
		return
	}
	go func() {
		m, err := n.buildConfirmation(order)
		if err != nil {
			logging.Error("build confirmation email failed", zap.String("order", order.PublicCode), zap.Error(err))
			return
		}
		if err := n.send(m); err != nil {
			logging.Error("send confirmation email failed", zap.String("order", order.PublicCode), zap.Error(err))
			return
		}
		logging.Info("confirmation email sent", zap.String("order", order.PublicCode))
	}()
}

func (n *MailNotifier) buildConfirmation(order model.Order) (*gomail.Message, error) {
	tmpl, err := template.ParseFiles(n.cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	data := OrderConfirmationData{
		OrderCode:     order.PublicCode,
		CustomerName:  order.CustomerName,
		TotalAmount:   FormatVND(order.AmountVND()),
		PaymentMethod: order.PaymentMethod,
		DetailLink:    fmt.Sprintf("%s/orders/%s", n.cfg.FrontendURL, order.PublicCode),
	}
	if order.PaidAt != nil {
		data.PaidAt = order.PaidAt.Format("15:04 - 02/01/2006")
	}
	for _, item := range order.Items {
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		data.Items = append(data.Items, OrderConfirmationItem{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Subtotal: FormatVND(subtotal.IntPart()),
		})
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", order.Email)
	m.SetHeader("Subject", "Xác nhận đơn hàng #"+order.PublicCode)
	m.SetBody("text/html", body.String())

	// QR mã đơn để tra cứu tại cửa hàng
	if qrBytes, err := GenerateQRCode(order.PublicCode, 300); err == nil {
		m.Embed("qr_order.png", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(qrBytes)
			return err
		}), gomail.SetHeader(map[string][]string{
			"Content-Type":        {"image/png"},
			"Content-ID":          {"<qr_order_code>"},
			"Content-Disposition": {"inline"},
		}))
	}
	return m, nil
}

// ReconciliationNeeded báo admin một giao dịch VNPay đã trừ tiền nhưng đơn chưa cập nhật
func (n *MailNotifier) ReconciliationNeeded(rec model.PaymentReconciliation) {
	if !n.enabled() || n.cfg.AdminEmail == "" {
		return
	}
	go func() {
		e := n.buildAlert(rec)
		addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := e.Send(addr, auth); err != nil {
			logging.Error("send reconciliation alert failed", zap.String("txn_ref", rec.TxnRef), zap.Error(err))
		}
	}()
}

func (n *MailNotifier) buildAlert(rec model.PaymentReconciliation) *email.Email {
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{n.cfg.AdminEmail}
	e.Subject = fmt.Sprintf("[EcoGood] Cần đối soát giao dịch VNPay %s", rec.TxnRef)
	e.Text = []byte(fmt.Sprintf(
		"Mã giao dịch: %s\nSố tiền: %s\nLý do: %s\nLỗi: %s\n",
		rec.TxnRef, FormatVND(rec.Amount), rec.Reason, rec.LastError,
	))
	return e
}
