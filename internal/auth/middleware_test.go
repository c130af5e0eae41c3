package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTriggerRouter(secret string, isAdmin func(uint) bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/trigger", TriggerAuthMiddleware(secret, isAdmin), func(c *gin.Context) {
		caller, _ := c.Get("trigger_caller")
		c.JSON(http.StatusOK, gin.H{"caller": caller})
	})
	return router
}

func doTrigger(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriggerAuthSharedSecret(t *testing.T) {
	router := newTriggerRouter("cron-secret", func(uint) bool { return false })

	if w := doTrigger(router, "Bearer cron-secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with the shared secret, got %d", w.Code)
	}
	if w := doTrigger(router, "Bearer wrong-secret"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a wrong secret, got %d", w.Code)
	}
	if w := doTrigger(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a header, got %d", w.Code)
	}
	if w := doTrigger(router, "Basic cron-secret"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a non-bearer scheme, got %d", w.Code)
	}
}

func TestTriggerAuthAcceptsAdminSession(t *testing.T) {
	InitJWT("test-jwt-secret")
	router := newTriggerRouter("cron-secret", func(userID uint) bool { return userID == 42 })

	token, err := GenerateToken(42, "wallet-42")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if w := doTrigger(router, "Bearer "+token); w.Code != http.StatusOK {
		t.Errorf("expected 200 with an admin session token, got %d", w.Code)
	}
}

func TestTriggerAuthRejectsNonAdminSession(t *testing.T) {
	InitJWT("test-jwt-secret")
	router := newTriggerRouter("cron-secret", func(userID uint) bool { return userID == 42 })

	// A perfectly valid session for an ordinary user must not reach the
	// trigger endpoints.
	token, err := GenerateToken(4242, "wallet-4242")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if w := doTrigger(router, "Bearer "+token); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a non-admin session, got %d", w.Code)
	}
}

func TestTriggerAuthRejectsSessionWithoutAdminCheck(t *testing.T) {
	InitJWT("test-jwt-secret")
	router := newTriggerRouter("cron-secret", nil)

	token, err := GenerateToken(42, "wallet-42")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// With no admin lookup wired, only the shared secret may pass.
	if w := doTrigger(router, "Bearer "+token); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 when no admin check is configured, got %d", w.Code)
	}
	if w := doTrigger(router, "Bearer cron-secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with the shared secret, got %d", w.Code)
	}
}

func TestTriggerAuthEmptySecretStillRequiresSession(t *testing.T) {
	InitJWT("test-jwt-secret")
	router := newTriggerRouter("", func(uint) bool { return true })

	// An empty configured secret must never turn an empty bearer into a match.
	if w := doTrigger(router, "Bearer "); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for an empty bearer token, got %d", w.Code)
	}
	if w := doTrigger(router, "Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a junk token, got %d", w.Code)
	}
}
