package handler

import (
	"ecogood/database"
	"ecogood/model"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func TestProductCatalog(t *testing.T) {
	db := newTestDB(t)
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	products := []model.Product{
		{Name: "Bàn chải tre", Slug: "ban-chai-tre", Price: decimal.NewFromInt(35000), Stock: 5, IsActive: true},
		{Name: "Túi vải canvas", Slug: "tui-vai-canvas", Price: decimal.NewFromInt(89000), Stock: 5, IsActive: true},
		{Name: "Hàng ngừng bán", Slug: "ngung-ban", Price: decimal.NewFromInt(1000), Stock: 5, IsActive: true},
	}
	if err := db.Create(&products).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&products[2]).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Get("/products", GetProducts)
	app.Get("/products/:slug", GetProductBySlug)

	var list struct {
		Data struct {
			Rows       []model.Product `json:"rows"`
			TotalCount int64           `json:"totalCount"`
		} `json:"data"`
	}
	decodeBody(t, send(t, app, http.MethodGet, "/products", ""), &list)
	if list.Data.TotalCount != 2 || len(list.Data.Rows) != 2 {
		t.Errorf("catalog = %d rows, total %d", len(list.Data.Rows), list.Data.TotalCount)
	}

	decodeBody(t, send(t, app, http.MethodGet, "/products?searchKey=canvas", ""), &list)
	if list.Data.TotalCount != 1 || list.Data.Rows[0].Slug != "tui-vai-canvas" {
		t.Errorf("search = %+v", list.Data.Rows)
	}

	if resp := send(t, app, http.MethodGet, "/products/ban-chai-tre", ""); resp.StatusCode != fiber.StatusOK {
		t.Errorf("detail status = %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodGet, "/products/ngung-ban", ""); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("inactive product status = %d", resp.StatusCode)
	}
}
