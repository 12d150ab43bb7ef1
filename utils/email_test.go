package utils

import (
	"bytes"
	"ecogood/model"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

func testOrder() model.Order {
	paidAt := time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)
	return model.Order{
		PublicCode:    "ORD-1A2B3C4D",
		CustomerName:  "Nguyen Van A",
		Email:         "a@example.com",
		TotalAmount:   decimal.NewFromInt(500000),
		PaymentMethod: "vnpay",
		PaidAt:        &paidAt,
		Items: []model.OrderItem{
			{ProductName: "Ống hút tre", UnitPrice: decimal.NewFromInt(250000), Quantity: 2},
		},
	}
}

func TestBuildConfirmationRendersOrder(t *testing.T) {
	n := NewMailNotifier(MailConfig{
		Host:         "smtp.example.com",
		From:         "EcoGood <no-reply@ecogood.vn>",
		FrontendURL:  "https://ecogood.vn",
		TemplatePath: "../templates/order_confirmation.html",
	})

	m, err := n.buildConfirmation(testOrder())
	if err != nil {
		t.Fatalf("buildConfirmation: %v", err)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "a@example.com" {
		t.Errorf("To = %v", got)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"qr_order_code", "image/png"} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildConfirmationMissingTemplate(t *testing.T) {
	n := NewMailNotifier(MailConfig{Host: "smtp.example.com", TemplatePath: "does-not-exist.html"})
	if _, err := n.buildConfirmation(testOrder()); err == nil {
		t.Fatal("expected template error")
	}
}

func TestPaymentConfirmedSkipsWithoutSMTP(t *testing.T) {
	n := NewMailNotifier(MailConfig{TemplatePath: "../templates/order_confirmation.html"})
	called := false
	n.send = func(*gomail.Message) error {
		called = true
		return nil
	}
	n.PaymentConfirmed(testOrder())
	if called {
		t.Error("mail sent with SMTP disabled")
	}
}

func TestBuildAlert(t *testing.T) {
	n := NewMailNotifier(MailConfig{From: "alert@ecogood.vn", AdminEmail: "admin@ecogood.vn"})
	e := n.buildAlert(model.PaymentReconciliation{
		TxnRef:    "1705289400000",
		Amount:    500000,
		Reason:    model.ReasonStoreFailure,
		LastError: "db timeout",
	})
	if len(e.To) != 1 || e.To[0] != "admin@ecogood.vn" {
		t.Errorf("To = %v", e.To)
	}
	if !strings.Contains(e.Subject, "1705289400000") {
		t.Errorf("subject = %q", e.Subject)
	}
	body := string(e.Text)
	if !strings.Contains(body, "500.000 ₫") || !strings.Contains(body, model.ReasonStoreFailure) {
		t.Errorf("body = %q", body)
	}
}

func TestFormatVND(t *testing.T) {
	cases := map[int64]string{
		0:       "0 ₫",
		999:     "999 ₫",
		1000:    "1.000 ₫",
		500000:  "500.000 ₫",
		1250000: "1.250.000 ₫",
		-45000:  "-45.000 ₫",
	}
	for in, want := range cases {
		if got := FormatVND(in); got != want {
			t.Errorf("FormatVND(%d) = %q, want %q", in, got, want)
		}
	}
}
