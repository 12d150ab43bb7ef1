package validate

import (
	"ecogood/model"

	"github.com/gofiber/fiber/v2"
)

func CreateVNPayPayment() fiber.Handler {
	return parseAndValidate[model.CreateVNPayPaymentInput]()
}

func AdminLogin() fiber.Handler {
	return parseAndValidate[model.AdminLoginInput]()
}
