package resp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestServerErrorHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		ServerError(c, errors.New(`pq: relation "dishes" does not exist`))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "relation") || strings.Contains(body, "dishes") {
		t.Fatalf("error detail leaked to client: %s", body)
	}
	if !strings.Contains(body, InternalErrorMessage) {
		t.Fatalf("expected generic message, got %s", body)
	}
}

func TestFailKeepsStatusOK(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/x", func(c *gin.Context) { Fail(c, "price must be a number") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("expected success=false, got %s", w.Body.String())
	}
}
