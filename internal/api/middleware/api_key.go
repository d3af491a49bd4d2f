package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/auth"
)

const (
	APIKeyHeader         = "X-API-Key"
	apiKeyFingerprintKey = "apiKeyFingerprint"
)

// KeyVerifier 校验 API Key，*auth.KeyRing 满足该接口。
type KeyVerifier interface {
	Len() int
	Verify(key string) bool
}

// APIKeyMiddleware 校验 webhook 请求携带的 API Key。
// 缺少密钥返回 401，密钥不匹配返回 403。
func APIKeyMiddleware(keys KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keys == nil || keys.Len() == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "webhook api keys are not configured"})
			return
		}
		// 密钥只从 Header 读取，避免出现在 URL 与访问日志中。
		key := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "API key is required"})
			return
		}
		if !keys.Verify(key) {
			LoggerFromContext(c).Warn("rejected webhook request with invalid api key")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid API key"})
			return
		}

		c.Set(apiKeyFingerprintKey, auth.Fingerprint(key))
		c.Next()
	}
}

// GetAPIKeyFingerprint 返回已通过校验的 API Key 摘要。
func GetAPIKeyFingerprint(c *gin.Context) string {
	return c.GetString(apiKeyFingerprintKey)
}
