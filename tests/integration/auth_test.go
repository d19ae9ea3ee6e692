//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func signUp(t *testing.T, client *http.Client, name, email, password string) string {
	t.Helper()

	resp := doPost(t, client, "/api/auth/sign-up", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("sign up: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[tokenResponse](t, resp).Token
}

func doGetAuth(t *testing.T, client *http.Client, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func doPostAuth(t *testing.T, client *http.Client, path string, body any, token string) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestSignIn_SeededAdmin(t *testing.T) {
	resp := doPost(t, httpClient, "/api/auth/sign-in", map[string]string{
		"email":    "admin@example.com",
		"password": "integration-test-password",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if tok := decodeJSON[tokenResponse](t, resp).Token; tok == "" {
		t.Error("empty token")
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	resp := doPost(t, httpClient, "/api/auth/sign-in", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong-password",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSignUp_ThenSignIn(t *testing.T) {
	token := signUp(t, httpClient, "New Shopper", "new-shopper@example.com", "s3cret-pass")
	if token == "" {
		t.Fatal("empty token from sign up")
	}

	resp := doPost(t, httpClient, "/api/auth/sign-in", map[string]string{
		"email":    "new-shopper@example.com",
		"password": "s3cret-pass",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	signUp(t, httpClient, "First", "dup@example.com", "s3cret-pass")

	resp := doPost(t, httpClient, "/api/auth/sign-up", map[string]string{
		"name":     "Second",
		"email":    "dup@example.com",
		"password": "s3cret-pass",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSignUp_ShortPassword(t *testing.T) {
	resp := doPost(t, httpClient, "/api/auth/sign-up", map[string]string{
		"name":     "Shorty",
		"email":    "shorty@example.com",
		"password": "abc",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
