package middleware

import (
	"net/http"
	"sync"
	"time"

	"board-ai-go/internal/config"
	"board-ai-go/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// bucketIdleTTL 是令牌桶无请求后被回收的最短时间。
const bucketIdleTTL = 10 * time.Minute

type orgBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// OrgRateLimiter 为每个组织维护一个令牌桶，长时间无请求的桶会被回收。
type OrgRateLimiter struct {
	mu        sync.Mutex
	buckets   map[uint]*orgBucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewOrgRateLimiter 根据配置创建限流器；requests_per_minute <= 0 时不限流。
func NewOrgRateLimiter(cfg config.RateLimitConfig) *OrgRateLimiter {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	// 回收前桶必须已经补满，否则回收会让组织多拿令牌
	idleTTL := bucketIdleTTL
	if limit != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idleTTL {
			idleTTL = refill
		}
	}
	return &OrgRateLimiter{
		buckets: make(map[uint]*orgBucket),
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow 判断组织当前是否还有可用令牌。
func (l *OrgRateLimiter) Allow(orgID uint) bool {
	now := l.now()
	l.mu.Lock()
	l.sweep(now)
	b, ok := l.buckets[orgID]
	if !ok {
		b = &orgBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[orgID] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// sweep 每隔 idleTTL 清理一次闲置的桶，调用方需持有 mu。
func (l *OrgRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, id)
		}
	}
}

// Len 返回当前保留的令牌桶数量。
func (l *OrgRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit 必须放在 AuthMiddleware 之后，按当前用户的组织限流。
func RateLimit(l *OrgRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Next()
			return
		}
		if !l.Allow(user.OrganizationID) {
			metrics.RateLimitedTotal.Inc()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "detail": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
