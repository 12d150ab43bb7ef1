package database

import (
	"ecogood/helper"
	"ecogood/logging"
	"ecogood/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seedProducts = []model.Product{
	{Name: "Bàn chải tre EcoGood", Description: "Bàn chải đánh răng cán tre, lông than hoạt tính", Price: decimal.NewFromInt(35000), Stock: 500},
	{Name: "Ống hút cỏ bàng (hộp 100)", Description: "Ống hút tự nhiên, phân hủy sinh học", Price: decimal.NewFromInt(59000), Stock: 300},
	{Name: "Túi vải canvas", Description: "Túi vải bố dày, thay túi nilon", Price: decimal.NewFromInt(89000), Stock: 200},
	{Name: "Bình giữ nhiệt inox 500ml", Description: "Inox 304, giữ nhiệt 12 giờ", Price: decimal.NewFromInt(245000), Stock: 120},
	{Name: "Xà phòng thiên nhiên quế hồi", Description: "Xà phòng handmade từ dầu dừa", Price: decimal.NewFromInt(65000), Stock: 250},
}

// SeedData chỉ chạy khi bảng sản phẩm còn trống
func SeedData(db *gorm.DB) {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		logging.Error("failed to count products", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	for _, product := range seedProducts {
		product.IsActive = true
		product.Slug = helper.GenerateUniqueProductSlug(db, product.Name)
		if err := db.Create(&product).Error; err != nil {
			logging.Error("failed to seed product", zap.String("name", product.Name), zap.Error(err))
		}
	}
	logging.Info("Seeded products", zap.Int("count", len(seedProducts)))
}
