package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))

	token, err := manager.GenerateAdminToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Errorf("expected subject ops@example.com, got %q", claims.Subject)
	}
	if !claims.Admin {
		t.Error("expected admin claim to be set")
	}
	if claims.Issuer != "recall-service" {
		t.Errorf("unexpected issuer %q", claims.Issuer)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.Expiry = -time.Hour
	manager := NewJWTManager(cfg)

	token, err := manager.GenerateAdminToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = manager.ValidateToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("secret-a"))
	other := NewJWTManager(DefaultJWTConfig("secret-b"))

	token, err := manager.GenerateAdminToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = other.ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))

	if _, err := manager.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))
	handler := RequireAdmin(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	adminToken, err := manager.GenerateAdminToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// A valid token without the admin claim
	now := time.Now()
	plain := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user@example.com",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Admin: false,
	})
	plainToken, err := plain.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer junk", http.StatusUnauthorized},
		{"non-admin token", "Bearer " + plainToken, http.StatusUnauthorized},
		{"admin token", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/exchanges", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
