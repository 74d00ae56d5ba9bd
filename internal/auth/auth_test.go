package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func testConfig() Config {
	return Config{
		Secret:   "test-secret",
		Issuer:   "oneclick-api",
		Audience: "oneclick-clients",
		TTL:      time.Minute,
	}
}

func protectedRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString("username")})
	})
	return r
}

func TestRequireAuthAcceptsIssuedToken(t *testing.T) {
	cfg := testConfig()
	issuer, err := NewJWTIssuer(cfg)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	token, _, err := issuer.Issue("maria")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter(cfg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthRejects(t *testing.T) {
	cfg := testConfig()
	issuer, _ := NewJWTIssuer(cfg)

	otherSecret := cfg
	otherSecret.Secret = "wrong-secret"
	otherIssuer, _ := NewJWTIssuer(otherSecret)

	good, _, _ := issuer.Issue("maria")
	forged, _, _ := otherIssuer.Issue("maria")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"wrong signature", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	r := protectedRouter(cfg)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestIssuerRequiresSecret(t *testing.T) {
	if _, err := NewJWTIssuer(Config{}); err == nil {
		t.Error("expected error for empty secret")
	}
}
