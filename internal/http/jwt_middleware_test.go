package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"login-page/internal/domain"
	"login-page/internal/service"
)

func middlewareRouter(jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(jwtSvc), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no claims"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func issueTestAccess(t *testing.T, jwtSvc *service.JWTService) string {
	t.Helper()
	token, _, err := jwtSvc.IssueAccess(domain.Account{
		ID:          "user-1",
		Email:       "a@x.com",
		DisplayName: "A",
	}, false)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	return token
}

func TestJWTAuthMiddleware_BearerHeader(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, 24*time.Hour, 7*24*time.Hour)
	router := middlewareRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestAccess(t, jwtSvc))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestJWTAuthMiddleware_CookieFallback(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, 24*time.Hour, 7*24*time.Hour)
	router := middlewareRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: issueTestAccess(t, jwtSvc)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestJWTAuthMiddleware_MissingToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, 24*time.Hour, 7*24*time.Hour)
	router := middlewareRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, 24*time.Hour, 7*24*time.Hour)
	router := middlewareRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, 24*time.Hour, 7*24*time.Hour)
	router := middlewareRouter(jwtSvc)

	refresh, _, err := jwtSvc.IssueRefresh(domain.Account{ID: "user-1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token on protected route, got %d", w.Code)
	}
}
