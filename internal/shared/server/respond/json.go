package respond

import (
	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status. Responses carry owner health
// data, so shared caches must not keep them.
func JSON(c *gin.Context, status int, payload any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, payload)
}
