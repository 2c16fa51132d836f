package middleware

import (
	"net/http"
	"sync"
	"time"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/metrics"
	"ipapi-client/internal/utils"
)

const defaultQPS = 200

// 文档注释：令牌桶限流（每秒）
// 背景：只保护代理服务自身入口，避免突发流量把上游免费额度瞬间耗尽；不作用于客户端库的出站调用。
// 约束：简化实现，不排队，超出即返回 429。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = defaultQPS
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Limit：按令牌桶放行，拒绝时计数并返回 429
func Limit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			metrics.ProxyRateLimitedTotal.Inc()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：RATE_LIMIT_ENABLED=true 时启用限流，速率取 RATE_LIMIT_QPS（默认 200）
func Wrap(next http.Handler) http.Handler {
	if !utils.GetenvBool("RATE_LIMIT_ENABLED", false) {
		return next
	}
	qps := utils.GetenvInt("RATE_LIMIT_QPS", defaultQPS)
	logger.L().Info("rate_limit_enabled", "qps", qps)
	return Limit(NewTokenBucket(qps), next)
}
