package handler

import (
	"ecogood/config"
	"ecogood/constants"
	"ecogood/helper"
	"ecogood/logging"
	"ecogood/model"
	"ecogood/utils"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminLogin: chỉ có một tài khoản admin, mật khẩu so với ADMIN_PASSWORD_HASH (bcrypt)
func AdminLogin(c *fiber.Ctx) error {
	input, ok := c.Locals("input").(model.AdminLoginInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}

	hash := config.Config("ADMIN_PASSWORD_HASH")
	if hash == "" {
		logging.Error("ADMIN_PASSWORD_HASH is not set")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	if !helper.CheckPasswordHash(input.Password, hash) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_WRONG_PASSWORD, nil)
	}

	token, err := helper.GenerateAccessToken(model.TokenClaim{
		Role:     constants.ROLE_ADMIN,
		Username: "admin",
	})
	if err != nil {
		logging.Error("generate access token failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		Secure:   config.AppEnv() == "production",
		Path:     "/",
		MaxAge:   int(helper.AccessTokenTTL.Seconds()),
	})

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"accessToken": token,
		"role":        constants.ROLE_ADMIN,
	})
}

func AdminLogout(c *fiber.Ctx) error {
	c.ClearCookie("access_token")
	return utils.SuccessResponse(c, fiber.StatusOK, nil)
}
