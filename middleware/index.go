package middleware

import (
	"ecogood/constants"
	"ecogood/helper"
	"ecogood/utils"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Protected chỉ cho admin đi qua. Token lấy từ cookie access_token hoặc header Bearer.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")

		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_UNAUTHORIZED, errors.New("no token"))
		}

		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_UNAUTHORIZED, errors.New("invalid token"))
		}

		claim, ok := helper.ClaimFromToken(jwtToken)
		if !ok || claim.Role != constants.ROLE_ADMIN {
			return utils.ErrorResponse(c, fiber.StatusForbidden, constants.ERROR_UNAUTHORIZED, errors.New("not permission"))
		}

		c.Locals("user", jwtToken)
		c.Locals("claim", claim)
		return c.Next()
	}
}
