package helper

import (
	"crypto/hmac"
	"crypto/sha512"
	"ecogood/config"
	"ecogood/constants"
	"ecogood/model"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	vnpVersion   = "2.1.0"
	vnpCommand   = "pay"
	vnpLocale    = "vn"
	vnpCurrCode  = "VND"
	vnpOrderType = "other"

	vnpSecureHash     = "vnp_SecureHash"
	vnpSecureHashType = "vnp_SecureHashType"
	vnpDateLayout     = "20060102150405"
)

// VNPay yêu cầu thời gian theo GMT+7
var VNPayLocation = time.FixedZone("ICT", 7*3600)

type VNPay struct {
	Config model.VNPayConfig
	now    func() time.Time

	mu      sync.Mutex
	lastRef int64
}

func NewVNPay(cfg model.VNPayConfig) (*VNPay, error) {
	if err := config.ValidateVNPay(cfg); err != nil {
		return nil, err
	}
	return &VNPay{Config: cfg, now: time.Now}, nil
}

// WithClock thay đồng hồ, dùng cho test
func (v *VNPay) WithClock(now func() time.Time) *VNPay {
	v.now = now
	return v
}

// BuildPaymentUrl tạo URL chuyển hướng sang VNPay đã ký HMAC-SHA512
func (v *VNPay) BuildPaymentUrl(req model.PaymentRequest) (model.PaymentURL, error) {
	if v == nil {
		return model.PaymentURL{}, fmt.Errorf("%w: vnpay not configured", constants.ErrConfiguration)
	}
	if err := config.ValidateVNPay(v.Config); err != nil {
		return model.PaymentURL{}, err
	}
	if req.Amount <= 0 {
		return model.PaymentURL{}, fmt.Errorf("%w: amount must be positive", constants.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.OrderInfo) == "" {
		return model.PaymentURL{}, fmt.Errorf("%w: orderInfo is required", constants.ErrInvalidRequest)
	}
	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}

	now := v.clock().In(VNPayLocation)
	txnRef := strconv.FormatInt(v.nextTxnRef(now), 10)
	createDate := now.Format(vnpDateLayout)

	params := url.Values{}
	params.Set("vnp_Version", vnpVersion)
	params.Set("vnp_Command", vnpCommand)
	params.Set("vnp_TmnCode", v.Config.TmnCode)
	params.Set("vnp_Locale", vnpLocale)
	params.Set("vnp_CurrCode", vnpCurrCode)
	params.Set("vnp_TxnRef", txnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", vnpOrderType)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10)) // VND * 100
	params.Set("vnp_ReturnUrl", v.Config.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", createDate)

	query := Canonicalize(params)
	return model.PaymentURL{
		URL:        v.Config.BaseURL + "?" + query + "&" + vnpSecureHash + "=" + v.Sign(query),
		TxnRef:     txnRef,
		CreateDate: createDate,
	}, nil
}

// nextTxnRef lấy mốc millisecond, tăng dần trong cùng process để hai lần tạo
// trong cùng một ms không trùng mã
func (v *VNPay) nextTxnRef(now time.Time) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref := now.UnixMilli()
	if ref <= v.lastRef {
		ref = v.lastRef + 1
	}
	v.lastRef = ref
	return ref
}

// VerifyReturnUrl kiểm tra chữ ký các tham số VNPay trả về (return URL hoặc IPN).
// Không sửa query của caller.
func (v *VNPay) VerifyReturnUrl(query url.Values) (model.PaymentResponse, error) {
	if v == nil || v.Config.HashSecret == "" {
		return model.PaymentResponse{}, fmt.Errorf("%w: vnpay not configured", constants.ErrConfiguration)
	}
	secureHash := strings.ToLower(strings.TrimSpace(query.Get(vnpSecureHash)))
	if secureHash == "" {
		return model.PaymentResponse{}, fmt.Errorf("%w: missing %s", constants.ErrSignatureMismatch, vnpSecureHash)
	}

	expected := v.Sign(Canonicalize(query))
	if !hmac.Equal([]byte(secureHash), []byte(expected)) {
		return model.PaymentResponse{}, constants.ErrSignatureMismatch
	}

	amount, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil || amount < 0 {
		return model.PaymentResponse{}, fmt.Errorf("%w: bad vnp_Amount", constants.ErrInvalidRequest)
	}

	return model.PaymentResponse{
		TxnRef:        query.Get("vnp_TxnRef"),
		Amount:        amount / 100,
		ResponseCode:  query.Get("vnp_ResponseCode"),
		TransactionNo: query.Get("vnp_TransactionNo"),
		BankCode:      query.Get("vnp_BankCode"),
		PayDate:       query.Get("vnp_PayDate"),
		Params:        signedParams(query),
	}, nil
}

// Canonicalize sắp xếp key, URL-encode value và nối bằng &.
// Chỉ lấy key vnp_*, bỏ vnp_SecureHash và vnp_SecureHashType.
func Canonicalize(params url.Values) string {
	signed := url.Values{}
	for key, values := range params {
		if !strings.HasPrefix(key, "vnp_") || key == vnpSecureHash || key == vnpSecureHashType {
			continue
		}
		if len(values) > 0 {
			signed.Set(key, values[0])
		}
	}
	return signed.Encode()
}

func signedParams(query url.Values) map[string]string {
	params := make(map[string]string, len(query))
	for key := range query {
		if strings.HasPrefix(key, "vnp_") && key != vnpSecureHash && key != vnpSecureHashType {
			params[key] = query.Get(key)
		}
	}
	return params
}

// Sign trả về HMAC-SHA512 dạng hex chữ thường
func (v *VNPay) Sign(data string) string {
	h := hmac.New(sha512.New, []byte(v.Config.HashSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func (v *VNPay) clock() time.Time {
	if v.now == nil {
		return time.Now()
	}
	return v.now()
}
