package middleware

import (
	"ecogood/constants"
	"ecogood/helper"
	"ecogood/model"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin", Protected(), func(c *fiber.Ctx) error {
		claim, _ := c.Locals("claim").(model.TokenClaim)
		return c.SendString(claim.Username)
	})
	return app
}

func TestProtected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-jwt-secret")

	adminToken, err := helper.GenerateAccessToken(model.TokenClaim{Role: constants.ROLE_ADMIN, Username: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	guestToken, err := helper.GenerateAccessToken(model.TokenClaim{Role: "GUEST", Username: "guest"})
	if err != nil {
		t.Fatal(err)
	}
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": constants.ROLE_ADMIN,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, _ := foreign.SignedString([]byte("other-secret"))
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": constants.ROLE_ADMIN,
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, _ := expired.SignedString([]byte("test-jwt-secret"))

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer admin", "Bearer " + adminToken, "", fiber.StatusOK},
		{"cookie admin", "", adminToken, fiber.StatusOK},
		{"no token", "", "", fiber.StatusUnauthorized},
		{"wrong role", "Bearer " + guestToken, "", fiber.StatusForbidden},
		{"wrong secret", "Bearer " + foreignToken, "", fiber.StatusUnauthorized},
		{"expired", "Bearer " + expiredToken, "", fiber.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", "", fiber.StatusUnauthorized},
	}
	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
