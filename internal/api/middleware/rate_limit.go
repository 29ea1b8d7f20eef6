package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/pkg/redis"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// 已认证请求按 user_id 计数，其余按客户端 IP。
// rdb 为 nil 或 Redis 出错时降级放行（与 JWTAuth 策略一致）。
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), rateLimitKey(c), limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	subject := c.GetString("user_id")
	if subject == "" {
		subject = "ip:" + c.ClientIP()
	}
	return fmt.Sprintf("rate_limit:%s:%s", subject, c.FullPath())
}
