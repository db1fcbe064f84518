package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	admin := router.Group("/admin")
	admin.Use(AuthMiddleware())
	admin.Use(AdminMiddleware())
	admin.GET("/ping", func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	return router
}

func doRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	InitJWT("test-secret")
	router := newProtectedRouter()

	resp := doRequest(router, "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", resp.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	InitJWT("test-secret")
	router := newProtectedRouter()

	resp := doRequest(router, "Token abc")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a non-bearer header, got %d", resp.Code)
	}
}

func TestAuthMiddlewareGarbledToken(t *testing.T) {
	InitJWT("test-secret")
	router := newProtectedRouter()

	resp := doRequest(router, "Bearer not-a-token")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a garbled token, got %d", resp.Code)
	}
}

func TestAdminMiddlewareRejectsNonAdmin(t *testing.T) {
	InitJWT("test-secret")
	router := newProtectedRouter()

	token, err := GenerateToken(7, "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	resp := doRequest(router, "Bearer "+token)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-admin role, got %d", resp.Code)
	}
}

func TestAdminMiddlewareAdmitsAdmin(t *testing.T) {
	InitJWT("test-secret")
	router := newProtectedRouter()

	token, err := GenerateToken(7, "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	resp := doRequest(router, "Bearer "+token)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200 for an admin token, got %d", resp.Code)
	}
}

func TestAuthMiddlewareRejectsForeignSignature(t *testing.T) {
	InitJWT("another-secret")
	token, err := GenerateToken(7, "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	InitJWT("test-secret")
	router := newProtectedRouter()

	resp := doRequest(router, "Bearer "+token)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a token signed with another secret, got %d", resp.Code)
	}
}
