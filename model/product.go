package model

import "github.com/shopspring/decimal"

type Product struct {
	DTO
	Name        string          `gorm:"not null" json:"name"`
	Slug        string          `gorm:"uniqueIndex;size:255" json:"slug"`
	Description string          `json:"description"`
	ImageUrl    string          `json:"imageUrl"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	IsActive    bool            `gorm:"default:true" json:"isActive"`
}

type FilterProduct struct {
	Pagination
	SearchKey string `query:"searchKey"`
}
