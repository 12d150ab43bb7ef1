package validate

import (
	"ecogood/constants"
	"ecogood/utils"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

var orderCodePattern = regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

// GetByCode kiểm tra mã đơn trên route, lưu vào Locals("orderCode")
func GetByCode(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.ToUpper(strings.TrimSpace(c.Params(key)))
		if !orderCodePattern.MatchString(code) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("order code invalid"))
		}
		c.Locals("orderCode", code)
		return c.Next()
	}
}

// parseAndValidate đọc body JSON vào T, validate rồi lưu vào Locals("input")
func parseAndValidate[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input T
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}
		if err := validate.Struct(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}
		c.Locals("input", input)
		return c.Next()
	}
}
