package auth

import (
	"net/http"
	"strings"

	"github.com/chenyk320/menu/internal/resp"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authn    Authenticator
	sessions *Sessions

	// SecureCookie marks the session cookie Secure; set behind TLS.
	SecureCookie bool
}

func NewHandler(authn Authenticator, sessions *Sessions) *Handler {
	return &Handler{authn: authn, sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login accepts a form or JSON body and sets the session cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		resp.BadRequest(c, "invalid request")
		return
	}

	p, err := h.authn.Authenticate(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
		return
	}

	token, sess, err := h.sessions.Issue(p)
	if err != nil {
		resp.ServerError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(h.sessions.TTL().Seconds()), "/", "", h.SecureCookie, true)

	resp.Success(c, "logged in", gin.H{
		"token":      token,
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.SecureCookie, true)
	resp.Success(c, "logged out", nil)
}

// Status reports whether the caller holds a valid session.
func (h *Handler) Status(c *gin.Context) {
	sess, ok := h.sessionOf(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      sess.Username,
		"expires_at":    sess.ExpiresAt,
	})
}

func (h *Handler) sessionOf(c *gin.Context) (*Session, bool) {
	token := TokenFromRequest(c)
	if token == "" {
		return nil, false
	}
	sess, err := h.sessions.Parse(token)
	return sess, err == nil
}

// TokenFromRequest reads the session token from the Authorization bearer
// header or, failing that, the session cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}
