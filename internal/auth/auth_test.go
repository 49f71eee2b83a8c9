package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSignVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := JWT{Secret: []byte("s3cret"), TokenTTL: time.Hour, Now: func() time.Time { return now }}

	tok, exp, err := j.Sign("ops", RoleAdmin)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiresAt = %v, want %v", exp, now.Add(time.Hour))
	}
	claims, err := j.Verify(tok)
	if err != nil || claims.Role != RoleAdmin || claims.Subject != "ops" {
		t.Fatalf("Verify = %+v, %v", claims, err)
	}

	other := JWT{Secret: []byte("other"), Now: j.Now}
	if _, err := other.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify expired = %v, want ErrInvalidToken", err)
	}
}

func TestSignWithoutSecret(t *testing.T) {
	if _, _, err := (JWT{}).Sign("ops", RoleAdmin); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("Sign without secret = %v, want ErrNoSecret", err)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("s3cret"), TokenTTL: time.Hour}
	admin, _, _ := j.Sign("ops", RoleAdmin)
	viewer, _, _ := j.Sign("bob", "viewer")

	r := gin.New()
	r.GET("/admin", RequireRole(j, RoleAdmin, false), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + viewer, http.StatusForbidden},
		{"bearer " + admin, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("Authorization %q: status = %d, want %d", tt.header, w.Code, tt.want)
		}
	}
}

func TestRequireRoleDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRole(JWT{}, RoleAdmin, true), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("disabled guard status = %d, want 204", w.Code)
	}
}
