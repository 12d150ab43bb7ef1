package model

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	BaseURL    string
	ReturnURL  string
}

// PaymentRequest là dữ liệu đầu vào để tạo URL thanh toán, không được lưu lại
type PaymentRequest struct {
	Amount    int64  `json:"amount"` // VND
	OrderInfo string `json:"orderInfo"`
	ClientIP  string `json:"clientIp"`
}

// PaymentURL là kết quả build URL chuyển hướng sang cổng thanh toán
type PaymentURL struct {
	URL        string `json:"paymentUrl"`
	TxnRef     string `json:"txnRef"`
	CreateDate string `json:"createDate"`
}

// PaymentResponse là kết quả đã xác thực chữ ký từ callback VNPay
type PaymentResponse struct {
	TxnRef        string `json:"txnRef"`
	Amount        int64  `json:"amount"` // VND, đã chia 100
	ResponseCode  string `json:"responseCode"`
	TransactionNo string `json:"transactionNo"`
	BankCode      string `json:"bankCode"`
	PayDate       string `json:"payDate"`

	Params map[string]string `json:"-"`
}

func (r PaymentResponse) IsSuccess() bool {
	return r.ResponseCode == VNPayCodeSuccess
}

const (
	VNPayCodeSuccess       = "00"
	VNPayCodeCancelled     = "24"
	VNPayCodeSuspicious    = "07"
	VNPayCodeNotRegistered = "09"
	VNPayCodeAuthFailed    = "10"
	VNPayCodeTimeout       = "11"
	VNPayCodeLocked        = "12"
	VNPayCodeWrongOTP      = "13"
	VNPayCodeNoBalance     = "51"
	VNPayCodeLimitExceeded = "65"
	VNPayCodeMaintenance   = "75"
	VNPayCodeTooManyTries  = "79"
)

var vnpayMessages = map[string]string{
	VNPayCodeSuccess:       "Giao dịch thành công",
	VNPayCodeSuspicious:    "Trừ tiền thành công, giao dịch bị nghi ngờ",
	VNPayCodeNotRegistered: "Thẻ/Tài khoản chưa đăng ký InternetBanking",
	VNPayCodeAuthFailed:    "Xác thực thông tin thẻ/tài khoản không đúng quá 3 lần",
	VNPayCodeTimeout:       "Hết hạn chờ thanh toán",
	VNPayCodeLocked:        "Thẻ/Tài khoản bị khóa",
	VNPayCodeWrongOTP:      "Nhập sai mật khẩu OTP",
	VNPayCodeCancelled:     "Khách hàng hủy giao dịch",
	VNPayCodeNoBalance:     "Tài khoản không đủ số dư",
	VNPayCodeLimitExceeded: "Vượt quá hạn mức giao dịch trong ngày",
	VNPayCodeMaintenance:   "Ngân hàng đang bảo trì",
	VNPayCodeTooManyTries:  "Nhập sai mật khẩu thanh toán quá số lần quy định",
}

func VNPayMessage(code string) string {
	if msg, ok := vnpayMessages[code]; ok {
		return msg
	}
	return "Lỗi không xác định"
}

// IPNResponse là body JSON VNPay yêu cầu khi gọi IPN
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var (
	IPNConfirmSuccess   = IPNResponse{RspCode: "00", Message: "Confirm Success"}
	IPNOrderNotFound    = IPNResponse{RspCode: "01", Message: "Order not found"}
	IPNAlreadyConfirmed = IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	IPNInvalidAmount    = IPNResponse{RspCode: "04", Message: "Invalid amount"}
	IPNInvalidSignature = IPNResponse{RspCode: "97", Message: "Invalid signature"}
	IPNUnknownError     = IPNResponse{RspCode: "99", Message: "Unknown error"}
)

type CreateVNPayPaymentInput struct {
	OrderCode string `json:"orderCode" validate:"required"`
}

type BankAccount struct {
	BankID      string `json:"bankId"`
	AccountNo   string `json:"accountNo"`
	AccountName string `json:"accountName"`
	Template    string `json:"template"`
}
