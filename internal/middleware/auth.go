package middleware

import (
	"net/http"
	"strings"

	"github.com/chenyk320/menu/internal/auth"
	"github.com/chenyk320/menu/internal/resp"

	"github.com/gin-gonic/gin"
)

const LoginPath = "/login"

// RequireSession gates admin routes. Browser page loads without a valid
// session are redirected to the login entry point; API calls get a 401.
func RequireSession(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c)
		if token == "" {
			reject(c, "login required")
			return
		}

		sess, err := sessions.Parse(token)
		if err != nil {
			reject(c, "session expired or invalid, please log in again")
			return
		}

		auth.WithSession(c, sess)
		c.Next()
	}
}

func reject(c *gin.Context, msg string) {
	if wantsHTML(c.Request) {
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
		return
	}
	resp.Unauthorized(c, msg)
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}
