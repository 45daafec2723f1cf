package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/metrics"
)

// Metrics 记录每个请求的耗时，按路由模板聚合
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordAPIRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
