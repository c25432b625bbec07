package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chenyk320/menu/internal/auth"

	"github.com/gin-gonic/gin"
)

func newSessions(t *testing.T) *auth.Sessions {
	t.Helper()
	s, err := auth.NewSessions("test-secret-key-for-testing-only", time.Hour)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	return s
}

func protectedRouter(sessions *auth.Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireSession(sessions))
	router.GET("/admin", func(c *gin.Context) {
		sess, _ := auth.SessionFrom(c)
		c.JSON(http.StatusOK, gin.H{"user": sess.Username})
	})
	router.DELETE("/api/dish/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

// TestRequireSession_MissingTokenAPI tests an API call without any session
func TestRequireSession_MissingTokenAPI(t *testing.T) {
	router := protectedRouter(newSessions(t))

	req := httptest.NewRequest(http.MethodDelete, "/api/dish/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

// TestRequireSession_BrowserRedirect tests that page loads go to the login page
func TestRequireSession_BrowserRedirect(t *testing.T) {
	router := protectedRouter(newSessions(t))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != LoginPath {
		t.Errorf("expected redirect to %s, got %q", LoginPath, loc)
	}
}

// TestRequireSession_InvalidAuthFormat tests a malformed Authorization header
func TestRequireSession_InvalidAuthFormat(t *testing.T) {
	router := protectedRouter(newSessions(t))

	req := httptest.NewRequest(http.MethodDelete, "/api/dish/1", nil)
	req.Header.Set("Authorization", "InvalidFormat")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

// TestRequireSession_InvalidToken tests a token that does not verify
func TestRequireSession_InvalidToken(t *testing.T) {
	router := protectedRouter(newSessions(t))

	req := httptest.NewRequest(http.MethodDelete, "/api/dish/1", nil)
	req.Header.Set("Authorization", "Bearer invalid_token_xyz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

// TestRequireSession_ValidCookie tests the session cookie set by login
func TestRequireSession_ValidCookie(t *testing.T) {
	sessions := newSessions(t)
	token, _, err := sessions.Issue(&auth.Principal{Username: "admin"})
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}

	router := protectedRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != `{"user":"admin"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

// TestRequireSession_ValidBearer tests the Authorization header path
func TestRequireSession_ValidBearer(t *testing.T) {
	sessions := newSessions(t)
	token, _, err := sessions.Issue(&auth.Principal{Username: "admin"})
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}

	router := protectedRouter(sessions)

	req := httptest.NewRequest(http.MethodDelete, "/api/dish/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}
