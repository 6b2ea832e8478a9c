package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMintAdminTokenRoundTrip(t *testing.T) {
	tok, err := mintAdminToken("supersecret", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	called := false
	h := requireAdminBearer("supersecret", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h(rec, req)

	if !called {
		t.Fatalf("expected handler to be called with a valid token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAdminBearerRejectsMissingHeader(t *testing.T) {
	h := requireAdminBearer("supersecret", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdminBearerRejectsWrongSecret(t *testing.T) {
	tok, err := mintAdminToken("secret-a", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	h := requireAdminBearer("secret-b", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token signed with a different secret, got %d", rec.Code)
	}
}

func TestRequireAdminBearerRejectsExpiredToken(t *testing.T) {
	tok, err := mintAdminToken("supersecret", -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	h := requireAdminBearer("supersecret", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}
