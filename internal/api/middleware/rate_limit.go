package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateCounter 是限流所需的 Redis 命令子集。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client RateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// RateLimitMiddleware 按 API Key 做固定窗口限流。
// counter 为 nil 或 limit <= 0 时不限流；Redis 不可用时放行并记录日志。
func RateLimitMiddleware(counter RateCounter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := GetAPIKeyFingerprint(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		bucket := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("ratelimit:webhook:%s:%d", subject, bucket)

		count, err := incrWithTTL(c.Request.Context(), counter, key, window)
		if err != nil {
			LoggerFromContext(c).Warn("rate limit check failed, allowing request", slog.Any("error", err))
			c.Next()
			return
		}
		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
