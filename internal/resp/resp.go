// Package resp writes the JSON envelopes of the menu API. Write endpoints
// always answer with {success, message}; validation failures keep HTTP 200.
package resp

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const InternalErrorMessage = "internal server error"

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Success(c *gin.Context, msg string, extra gin.H) {
	body := gin.H{"success": true, "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func Fail(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": msg})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msg})
}

// ServerError logs err and answers with a generic message; driver and SQL
// text never reach the client.
func ServerError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": InternalErrorMessage})
}
