package constants

const (
	ERROR_INTERNAL_ERROR       = "Lỗi hệ thống, vui lòng thử lại sau"
	ERROR_PARSE_DATA_TO_LOCALS = "Không thể đọc dữ liệu từ request"
	ERROR_INVALID_INPUT        = "Dữ liệu không hợp lệ"
	ERROR_ORDER_NOT_FOUND      = "Không tìm thấy đơn hàng"
	ERROR_PRODUCT_NOT_FOUND    = "Không tìm thấy sản phẩm"
	ERROR_OUT_OF_STOCK         = "Sản phẩm không đủ hàng"
	ERROR_ORDER_NOT_PAYABLE    = "Đơn hàng không thể thanh toán"
	ERROR_CREATE_PAYMENT_URL   = "Lỗi tạo payment URL"
	ERROR_ILLEGAL_TRANSITION   = "Không thể chuyển trạng thái đơn hàng"
	ERROR_UNAUTHORIZED         = "Vui lòng đăng nhập"
	ERROR_WRONG_PASSWORD       = "Mật khẩu không đúng"
)

const (
	ROLE_ADMIN = "ADMIN"
)

const (
	PAYMENT_METHOD_COD           = "cod"
	PAYMENT_METHOD_BANK_TRANSFER = "bank_transfer"
	PAYMENT_METHOD_VNPAY         = "vnpay"
)
