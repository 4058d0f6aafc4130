package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyFunc 限流维度
type KeyFunc func(c *gin.Context) string

// ByIP 按客户端 IP 限流
func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByAccount 按登录账号限流，未登录时退回 IP
func ByAccount(c *gin.Context) string {
	if id := GetCurrentAccountID(c); id != uuid.Nil {
		return id.String()
	}
	return c.ClientIP()
}

// RateLimit 滑动窗口限流中间件
// 每个 key 在 window 内最多 max 次请求，超过则返回 429
func RateLimit(max int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	var (
		mu    sync.Mutex
		store = make(map[string][]time.Time)
	)
	prune := func(ts []time.Time, cutoff time.Time) []time.Time {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		return kept
	}
	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			cutoff := time.Now().Add(-window)
			for k, ts := range store {
				if ts = prune(ts, cutoff); len(ts) == 0 {
					delete(store, k)
				} else {
					store[k] = ts
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		k := key(c)
		now := time.Now()
		mu.Lock()
		ts := prune(store[k], now.Add(-window))
		if len(ts) >= max {
			store[k] = ts
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "请求过于频繁，请稍后再试",
			})
			return
		}
		store[k] = append(ts, now)
		mu.Unlock()
		c.Next()
	}
}
