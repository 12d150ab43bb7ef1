package constants

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid payment request")
	ErrConfiguration      = errors.New("payment configuration error")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrOrderNotFound      = errors.New("order not found")
	ErrStoreUpdateFailure = errors.New("order store update failed")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrAmountMismatch     = errors.New("amount mismatch")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductNotFound    = errors.New("product not found")
)
