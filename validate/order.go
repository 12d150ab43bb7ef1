package validate

import (
	"ecogood/constants"
	"ecogood/model"
	"ecogood/utils"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.CreateOrderInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}
		input.CustomerName = strings.TrimSpace(input.CustomerName)
		input.Phone = strings.TrimSpace(input.Phone)
		input.Email = strings.TrimSpace(input.Email)
		input.Address = strings.TrimSpace(input.Address)

		if err := validate.Struct(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}

		// Gộp các dòng trùng sản phẩm
		merged := make([]model.CreateOrderItemInput, 0, len(input.Items))
		index := map[uint]int{}
		for _, item := range input.Items {
			if i, ok := index[item.ProductID]; ok {
				merged[i].Quantity += item.Quantity
				continue
			}
			index[item.ProductID] = len(merged)
			merged = append(merged, item)
		}
		input.Items = merged

		c.Locals("input", input)
		return c.Next()
	}
}

func UpdateOrderStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.UpdateOrderStatusInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}
		if input.OrderStatus == nil && input.PaymentStatus == nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("orderStatus or paymentStatus is required"))
		}
		if input.OrderStatus != nil && !input.OrderStatus.Valid() {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("orderStatus invalid"))
		}
		if input.PaymentStatus != nil && !input.PaymentStatus.Valid() {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("paymentStatus invalid"))
		}
		c.Locals("input", input)
		return c.Next()
	}
}

func FilterOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filter model.FilterOrder
		if err := c.QueryParser(&filter); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
		}
		if filter.PaymentStatus != "" && !model.PaymentStatus(filter.PaymentStatus).Valid() {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("paymentStatus invalid"))
		}
		if filter.OrderStatus != "" && !model.OrderStatus(filter.OrderStatus).Valid() {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("orderStatus invalid"))
		}
		c.Locals("filter", filter)
		return c.Next()
	}
}
