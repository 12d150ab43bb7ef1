package helper

import (
	"ecogood/model"
	"fmt"
	"net/url"
)

const vietQRImageBase = "https://img.vietqr.io/image"

// BuildBankTransferQRURL tạo link ảnh VietQR cho chuyển khoản ngân hàng
func BuildBankTransferQRURL(acc model.BankAccount, amount int64, description string) string {
	template := acc.Template
	if template == "" {
		template = "compact2"
	}
	q := url.Values{}
	if amount > 0 {
		q.Set("amount", fmt.Sprintf("%d", amount))
	}
	if description != "" {
		q.Set("addInfo", description)
	}
	if acc.AccountName != "" {
		q.Set("accountName", acc.AccountName)
	}

	u := fmt.Sprintf("%s/%s-%s-%s.png",
		vietQRImageBase,
		url.PathEscape(acc.BankID),
		url.PathEscape(acc.AccountNo),
		url.PathEscape(template),
	)
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// TransferDescription là nội dung chuyển khoản để đối soát theo mã đơn
func TransferDescription(orderCode string) string {
	return "ECOGOOD " + orderCode
}
