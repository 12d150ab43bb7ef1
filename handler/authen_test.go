package handler

import (
	"ecogood/helper"
	"ecogood/validate"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAdminLogin(t *testing.T) {
	hash, err := helper.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADMIN_PASSWORD_HASH", hash)
	t.Setenv("JWT_SECRET", "test-jwt-secret")

	app := fiber.New()
	app.Post("/login", validate.AdminLogin(), AdminLogin)

	resp := send(t, app, http.MethodPost, "/login", `{"password":"s3cret-pass"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("access_token cookie = %+v", cookie)
	}
	var out struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	decodeBody(t, resp, &out)
	token, err := helper.ParseToken(out.Data.AccessToken)
	if err != nil || !token.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claim, _ := helper.ClaimFromToken(token); claim.Role != "ADMIN" {
		t.Errorf("role = %q", claim.Role)
	}

	if resp := send(t, app, http.MethodPost, "/login", `{"password":"wrong"}`); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("wrong password status = %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodPost, "/login", `{}`); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("empty body status = %d", resp.StatusCode)
	}
}
