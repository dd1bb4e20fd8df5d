package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/keshav2k4/employee-tracker-App/internal/remote"
)

func TestAuthHandlersLoginMeLogout(t *testing.T) {
	svc, _ := newTestService(t, stubLogin{user: testUser()})
	loggedOut := false

	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), svc, JWTMiddleware("test-secret"), func() { loggedOut = true })

	body, _ := json.Marshal(LoginRequest{Username: "9990001111", Password: "pw"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %v", err)
	}
	var payload struct {
		Tokens TokenResponse `json:"tokens"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Tokens.AccessToken == "" {
		t.Fatalf("expected control token")
	}
	bearer := "Bearer " + payload.Tokens.AccessToken

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", bearer)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("me status: %v", err)
	}
	var user remote.User
	_ = json.NewDecoder(resp.Body).Decode(&user)
	if user.EmployeeID != "17" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", bearer)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status: %v", err)
	}
	if !loggedOut {
		t.Fatalf("expected logout hook to run")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", bearer)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found after logout")
	}
}

func TestAuthHandlersLoginErrors(t *testing.T) {
	svc, _ := newTestService(t, stubLogin{err: &remote.LoginError{StatusCode: 452, Message: "Account may be disabled or restricted (Error 452)"}})
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), svc, JWTMiddleware("test-secret"), nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}

	body, _ := json.Marshal(LoginRequest{Username: "u", Password: "p"})
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}

	svc, _ = newTestService(t, stubLogin{err: remote.ErrNetwork})
	app = fiber.New()
	RegisterRoutes(app.Group("/auth"), svc, JWTMiddleware("test-secret"), nil)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected bad gateway on network failure, got %d", resp.StatusCode)
	}
}
