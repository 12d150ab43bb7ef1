package handler

import (
	"context"
	"ecogood/database"
	"ecogood/helper"
	"ecogood/model"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "TESTSECRET"
	testFrontend = "https://ecogood.vn"
)

func testVNPay(t *testing.T) *helper.VNPay {
	t.Helper()
	v, err := helper.NewVNPay(model.VNPayConfig{
		TmnCode:    "ECOGOOD1",
		HashSecret: testSecret,
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://ecogood.vn/vnpay/return",
	})
	if err != nil {
		t.Fatalf("NewVNPay: %v", err)
	}
	return v
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db      *gorm.DB
	store   *database.OrderStore
	product model.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	p := model.Product{Name: "Bình giữ nhiệt", Slug: "binh-giu-nhiet", Price: decimal.NewFromInt(250000), Stock: 10, IsActive: true}
	if err := db.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return &fixture{db: db, store: database.NewOrderStore(db, time.Second), product: p}
}

// newOrder tạo đơn 2 x 250.000 = 500.000 VND
func (f *fixture) newOrder(t *testing.T, code, method string) *model.Order {
	t.Helper()
	order := &model.Order{
		PublicCode:    code,
		CustomerName:  "Nguyen Van A",
		Phone:         "0901234567",
		Email:         "a@example.com",
		Address:       "1 Le Loi, Q1",
		PaymentMethod: method,
		Items:         []model.OrderItem{{ProductID: f.product.ID, Quantity: 2}},
	}
	if err := f.store.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func (f *fixture) newAttempt(t *testing.T, order *model.Order, txnRef string) {
	t.Helper()
	err := f.store.CreatePaymentAttempt(context.Background(), &model.Payment{
		OrderID: order.ID,
		TxnRef:  txnRef,
		Amount:  order.AmountVND(),
		Method:  "vnpay",
	})
	if err != nil {
		t.Fatalf("CreatePaymentAttempt: %v", err)
	}
}

func (f *fixture) reload(t *testing.T, code string) *model.Order {
	t.Helper()
	order, err := f.store.FindOrderByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("FindOrderByCode: %v", err)
	}
	return order
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var p model.Product
	if err := f.db.First(&p, f.product.ID).Error; err != nil {
		t.Fatal(err)
	}
	return p.Stock
}

// signedCallback dựng query VNPay gửi về, ký bằng secret test
func signedCallback(v *helper.VNPay, txnRef string, amount int64, code string) url.Values {
	q := url.Values{}
	q.Set("vnp_Amount", strconv.FormatInt(amount*100, 10))
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_OrderInfo", "Thanh toan don hang")
	q.Set("vnp_PayDate", "20240115103500")
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TmnCode", "ECOGOOD1")
	q.Set("vnp_TransactionNo", "14012345")
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TxnRef", txnRef)
	q.Set("vnp_SecureHashType", "HmacSHA512")
	q.Set("vnp_SecureHash", v.Sign(helper.Canonicalize(q)))
	return q
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []model.Order
	alerts    []model.PaymentReconciliation
}

func (n *fakeNotifier) PaymentConfirmed(order model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, order)
}

func (n *fakeNotifier) ReconciliationNeeded(rec model.PaymentReconciliation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, rec)
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []model.StatusChange
}

func (p *fakePublisher) PublishStatus(_ context.Context, change model.StatusChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}
