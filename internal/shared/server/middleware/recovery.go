package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/telemetry"
)

var contextFields = map[string]string{
	"documentId": "document_id",
	"jobId":      "job_id",
	"userId":     "user_id",
}

// Recovery turns a handler panic into a 500 envelope. Document and job ids
// set by upload handlers are logged with the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"method":     c.Request.Method,
				"path":       c.FullPath(),
			}
			for key, field := range contextFields {
				if v := c.GetString(key); v != "" {
					fields[field] = v
				}
			}
			telemetry.Error("panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
			c.Abort()
		}()
		c.Next()
	}
}
