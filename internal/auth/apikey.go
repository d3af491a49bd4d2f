// Package auth 负责 webhook API Key 的生成与校验。
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "fdk_"

// GenerateAPIKey 生成随机 API Key，明文只应展示一次。
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey 使用 bcrypt 生成 API Key 哈希。
func HashAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("api key is empty")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(bytes), nil
}

// Fingerprint 返回 API Key 的短摘要，用于限流键和日志，避免明文落地。
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// KeyRing 持有已配置的 API Key 哈希。
type KeyRing struct {
	hashes [][]byte
}

// NewKeyRing 构造 KeyRing，忽略空白项。
func NewKeyRing(hashes []string) *KeyRing {
	ring := &KeyRing{}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			ring.hashes = append(ring.hashes, []byte(h))
		}
	}
	return ring
}

// Len 返回已配置的哈希数量。
func (r *KeyRing) Len() int {
	if r == nil {
		return 0
	}
	return len(r.hashes)
}

// Verify 判断 key 是否与任一哈希匹配。
func (r *KeyRing) Verify(key string) bool {
	if r == nil || key == "" {
		return false
	}
	for _, h := range r.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}
