package handler

import (
	"ecogood/constants"
	"ecogood/database"
	"ecogood/logging"
	"ecogood/model"
	"ecogood/utils"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func GetProducts(c *fiber.Ctx) error {
	filterInput := new(model.FilterProduct)
	if err := c.QueryParser(filterInput); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
	}

	limit := 12
	page := 1
	if filterInput.Limit != nil && *filterInput.Limit > 0 {
		limit = *filterInput.Limit
		if limit > 100 {
			limit = 100
		}
	}
	if filterInput.Page != nil && *filterInput.Page > 0 {
		page = *filterInput.Page
	}

	db := database.DB
	query := db.Model(&model.Product{}).Where("is_active = ?", true)
	if key := strings.ToLower(strings.TrimSpace(filterInput.SearchKey)); key != "" {
		search := "%" + key + "%"
		query = query.Where("LOWER(name) LIKE ? OR slug LIKE ?", search, search)
	}
	query = query.Session(&gorm.Session{})

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		logging.Error("count products failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	var products []model.Product
	if err := query.Order("id asc").Limit(limit).Offset((page - 1) * limit).Find(&products).Error; err != nil {
		logging.Error("list products failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       products,
		Limit:      &limit,
		Page:       &page,
		TotalCount: totalCount,
	})
}

func GetProductBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var product model.Product
	if err := database.DB.Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_PRODUCT_NOT_FOUND, nil)
		}
		logging.Error("find product failed", zap.String("slug", slug), zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, nil)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, product)
}
