package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/qaloader-api/internal/models"
)

const testSecret = "unit-test-secret"

func signedToken(t *testing.T, method jwt.SigningMethod, secret string) string {
	t.Helper()
	claims := &models.JWTClaims{
		Username: "kai",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func jwtTestRouter(captured **models.JWTClaims) *gin.Engine {
	router := gin.New()
	router.Use(JWT(testSecret))
	router.GET("/", func(c *gin.Context) {
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, castOK := value.(*models.JWTClaims); castOK && captured != nil {
				*captured = claims
			}
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	router := jwtTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareRejectsBadScheme(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	router := jwtTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token "+signedToken(t, jwt.SigningMethodHS256, testSecret))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareRejectsWrongSigningMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	router := jwtTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.SigningMethodHS512, testSecret))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	router := jwtTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.SigningMethodHS256, "other-secret"))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	var captured *models.JWTClaims
	router := jwtTestRouter(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.SigningMethodHS256, testSecret))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if captured == nil {
		t.Fatalf("expected claims in context")
	}
	if captured.Username != "kai" {
		t.Fatalf("unexpected username: %s", captured.Username)
	}
}
