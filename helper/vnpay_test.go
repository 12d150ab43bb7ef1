package helper

import (
	"ecogood/constants"
	"ecogood/model"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

const testSecret = "TESTSECRET"

func newTestVNPay(t *testing.T) *VNPay {
	t.Helper()
	v, err := NewVNPay(model.VNPayConfig{
		TmnCode:    "ECOGOOD1",
		HashSecret: testSecret,
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://ecogood.vn/vnpay/return",
	})
	if err != nil {
		t.Fatalf("NewVNPay() error = %v", err)
	}
	fixed := time.Date(2024, 1, 15, 10, 30, 0, 0, VNPayLocation)
	return v.WithClock(func() time.Time { return fixed })
}

func parsePaymentURL(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u.Query()
}

func TestBuildPaymentUrlKnownVector(t *testing.T) {
	v := newTestVNPay(t)

	got, err := v.BuildPaymentUrl(model.PaymentRequest{Amount: 500000, OrderInfo: "Test order", ClientIP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("BuildPaymentUrl() error = %v", err)
	}

	wantQuery := "vnp_Amount=50000000&vnp_Command=pay&vnp_CreateDate=20240115103000&vnp_CurrCode=VND" +
		"&vnp_IpAddr=127.0.0.1&vnp_Locale=vn&vnp_OrderInfo=Test+order&vnp_OrderType=other" +
		"&vnp_ReturnUrl=https%3A%2F%2Fecogood.vn%2Fvnpay%2Freturn&vnp_TmnCode=ECOGOOD1" +
		"&vnp_TxnRef=1705289400000&vnp_Version=2.1.0"
	wantHash := "0bc9566e4c7c764b29ccaca473382adfc7951f25a02c4a486d8197671dbb62ff" +
		"6b97c91c50628d7aba7239b9ab3d79acfa26d717c0fee1e5ec4d0f0c8bb7d60a"
	wantURL := "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?" + wantQuery + "&vnp_SecureHash=" + wantHash

	if got.URL != wantURL {
		t.Errorf("URL =\n%s\nwant\n%s", got.URL, wantURL)
	}
	if got.TxnRef != "1705289400000" {
		t.Errorf("TxnRef = %q", got.TxnRef)
	}
	if got.CreateDate != "20240115103000" {
		t.Errorf("CreateDate = %q", got.CreateDate)
	}

	q := parsePaymentURL(t, got.URL)
	if q.Get("vnp_Amount") != "50000000" {
		t.Errorf("vnp_Amount = %q, want 50000000", q.Get("vnp_Amount"))
	}
}

func TestBuildPaymentUrlTxnRefUniqueWithinMillisecond(t *testing.T) {
	v := newTestVNPay(t)

	want := []string{"1705289400000", "1705289400001", "1705289400002"}
	for _, ref := range want {
		got, err := v.BuildPaymentUrl(model.PaymentRequest{Amount: 1000, OrderInfo: "x"})
		if err != nil {
			t.Fatalf("BuildPaymentUrl() error = %v", err)
		}
		if got.TxnRef != ref {
			t.Errorf("TxnRef = %q, want %q", got.TxnRef, ref)
		}
		if got.CreateDate != "20240115103000" {
			t.Errorf("CreateDate = %q", got.CreateDate)
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.BuildPaymentUrl(model.PaymentRequest{Amount: 1000, OrderInfo: "x"})
			if err != nil {
				t.Errorf("BuildPaymentUrl() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[got.TxnRef] {
				t.Errorf("duplicate TxnRef %s", got.TxnRef)
			}
			seen[got.TxnRef] = true
		}()
	}
	wg.Wait()
}

func TestBuildPaymentUrlCreateDateUsesGMT7(t *testing.T) {
	v := newTestVNPay(t)
	v.WithClock(func() time.Time { return time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC) })

	got, err := v.BuildPaymentUrl(model.PaymentRequest{Amount: 1000, OrderInfo: "x"})
	if err != nil {
		t.Fatalf("BuildPaymentUrl() error = %v", err)
	}
	if got.CreateDate != "20240116030000" {
		t.Errorf("CreateDate = %q, want 20240116030000", got.CreateDate)
	}
}

func TestBuildPaymentUrlInvalidRequest(t *testing.T) {
	v := newTestVNPay(t)
	tests := []struct {
		name string
		req  model.PaymentRequest
	}{
		{"zero amount", model.PaymentRequest{Amount: 0, OrderInfo: "Test order"}},
		{"negative amount", model.PaymentRequest{Amount: -5, OrderInfo: "Test order"}},
		{"empty order info", model.PaymentRequest{Amount: 1000, OrderInfo: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.BuildPaymentUrl(tt.req)
			if !errors.Is(err, constants.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestBuildPaymentUrlConfigurationError(t *testing.T) {
	if _, err := NewVNPay(model.VNPayConfig{TmnCode: "ECOGOOD1"}); !errors.Is(err, constants.ErrConfiguration) {
		t.Fatalf("NewVNPay() error = %v, want ErrConfiguration", err)
	}

	var nilVNPay *VNPay
	if _, err := nilVNPay.BuildPaymentUrl(model.PaymentRequest{Amount: 1, OrderInfo: "x"}); !errors.Is(err, constants.ErrConfiguration) {
		t.Errorf("nil VNPay error = %v, want ErrConfiguration", err)
	}

	empty := &VNPay{}
	if _, err := empty.BuildPaymentUrl(model.PaymentRequest{Amount: 1, OrderInfo: "x"}); !errors.Is(err, constants.ErrConfiguration) {
		t.Errorf("zero VNPay error = %v, want ErrConfiguration", err)
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	v := newTestVNPay(t)
	got, err := v.BuildPaymentUrl(model.PaymentRequest{Amount: 250000, OrderInfo: "Thanh toan don hang ORD-1A2B3C4D", ClientIP: "10.0.0.8"})
	if err != nil {
		t.Fatalf("BuildPaymentUrl() error = %v", err)
	}

	q := parsePaymentURL(t, got.URL)
	hash := q.Get("vnp_SecureHash")
	if resigned := v.Sign(Canonicalize(q)); resigned != hash {
		t.Errorf("re-signed digest %q != original %q", resigned, hash)
	}
	if _, err := v.VerifyReturnUrl(q); err != nil {
		t.Errorf("VerifyReturnUrl() on own URL error = %v", err)
	}
}

func TestCanonicalizeExcludesHashFields(t *testing.T) {
	q := url.Values{}
	q.Set("vnp_TxnRef", "1")
	q.Set("vnp_Amount", "100")
	q.Set("vnp_SecureHash", "deadbeef")
	q.Set("vnp_SecureHashType", "HmacSHA512")
	q.Set("utm_source", "mail")

	got := Canonicalize(q)
	if strings.Contains(got, "SecureHash") || strings.Contains(got, "deadbeef") {
		t.Errorf("Canonicalize() = %q contains the hash field", got)
	}
	if strings.Contains(got, "utm_source") {
		t.Errorf("Canonicalize() = %q contains a non vnp_ key", got)
	}
	if got != "vnp_Amount=100&vnp_TxnRef=1" {
		t.Errorf("Canonicalize() = %q", got)
	}
	if q.Get("vnp_SecureHash") != "deadbeef" {
		t.Error("Canonicalize() must not modify its input")
	}
}

func signedCallback(v *VNPay, code string) url.Values {
	q := url.Values{}
	q.Set("vnp_Amount", "50000000")
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_OrderInfo", "Test order")
	q.Set("vnp_PayDate", "20240115103512")
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TmnCode", "ECOGOOD1")
	q.Set("vnp_TransactionNo", "14226112")
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TxnRef", "1705289400000")
	q.Set("vnp_SecureHashType", "HmacSHA512")
	q.Set("vnp_SecureHash", v.Sign(Canonicalize(q)))
	return q
}

func TestVerifyReturnUrl(t *testing.T) {
	v := newTestVNPay(t)

	resp, err := v.VerifyReturnUrl(signedCallback(v, "00"))
	if err != nil {
		t.Fatalf("VerifyReturnUrl() error = %v", err)
	}
	if !resp.IsSuccess() || resp.TxnRef != "1705289400000" || resp.Amount != 500000 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.TransactionNo != "14226112" || resp.BankCode != "NCB" {
		t.Errorf("gateway fields not copied: %+v", resp)
	}

	resp, err = v.VerifyReturnUrl(signedCallback(v, "24"))
	if err != nil {
		t.Fatalf("VerifyReturnUrl() error = %v", err)
	}
	if resp.IsSuccess() {
		t.Error("code 24 must not be success")
	}
}

func TestVerifyReturnUrlAcceptsUppercaseHash(t *testing.T) {
	v := newTestVNPay(t)
	q := signedCallback(v, "00")
	q.Set("vnp_SecureHash", strings.ToUpper(q.Get("vnp_SecureHash")))
	if _, err := v.VerifyReturnUrl(q); err != nil {
		t.Errorf("VerifyReturnUrl() error = %v", err)
	}
}

func TestVerifyReturnUrlRejectsTampering(t *testing.T) {
	v := newTestVNPay(t)

	tampered := signedCallback(v, "00")
	tampered.Set("vnp_Amount", "100")
	if _, err := v.VerifyReturnUrl(tampered); !errors.Is(err, constants.ErrSignatureMismatch) {
		t.Errorf("tampered amount error = %v, want ErrSignatureMismatch", err)
	}

	missing := signedCallback(v, "00")
	missing.Del("vnp_SecureHash")
	if _, err := v.VerifyReturnUrl(missing); !errors.Is(err, constants.ErrSignatureMismatch) {
		t.Errorf("missing hash error = %v, want ErrSignatureMismatch", err)
	}

	other := &VNPay{Config: v.Config}
	other.Config.HashSecret = "OTHERSECRET"
	if _, err := other.VerifyReturnUrl(signedCallback(v, "00")); !errors.Is(err, constants.ErrSignatureMismatch) {
		t.Errorf("wrong secret error = %v, want ErrSignatureMismatch", err)
	}
}

// Đổi một ký tự bất kỳ trong bất kỳ giá trị nào đều phải làm lệch chữ ký
func TestSignatureSensitivity(t *testing.T) {
	v := newTestVNPay(t)
	base := signedCallback(v, "00")
	original := base.Get("vnp_SecureHash")

	for key := range base {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		value := base.Get(key)
		for i := range value {
			mutated := url.Values{}
			for k, vs := range base {
				mutated[k] = append([]string(nil), vs...)
			}
			b := []byte(value)
			b[i] ^= 0x01
			mutated.Set(key, string(b))

			if v.Sign(Canonicalize(mutated)) == original {
				t.Fatalf("flipping %s[%d] did not change the digest", key, i)
			}
			if _, err := v.VerifyReturnUrl(mutated); !errors.Is(err, constants.ErrSignatureMismatch) {
				t.Fatalf("flipping %s[%d]: error = %v, want ErrSignatureMismatch", key, i, err)
			}
		}
	}
}
