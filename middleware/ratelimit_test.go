package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit_ByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 短窗口 200ms，最多 2 次
	router := gin.New()
	router.Use(RateLimit(2, 200*time.Millisecond, ByIP))
	router.POST("/sessions", func(c *gin.Context) {
		c.String(200, "ok")
	})

	doReq := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/sessions", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, 200, doReq("192.168.1.1").Code)
	assert.Equal(t, 200, doReq("192.168.1.1").Code)
	w3 := doReq("192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Contains(t, w3.Body.String(), "频繁")

	// 不同 IP 互不影响
	assert.Equal(t, 200, doReq("192.168.1.2").Code)

	// 窗口过后恢复
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 200, doReq("192.168.1.1").Code)
}

func TestRateLimit_ByAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, b := uuid.New(), uuid.New()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Account") == "a" {
			c.Set(accountIDKey, a)
		} else {
			c.Set(accountIDKey, b)
		}
		c.Next()
	})
	router.Use(RateLimit(1, time.Minute, ByAccount))
	router.POST("/me/deletion", func(c *gin.Context) {
		c.String(200, "ok")
	})

	doReq := func(account string) int {
		req := httptest.NewRequest("POST", "/me/deletion", nil)
		req.Header.Set("X-Account", account)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, 200, doReq("a"))
	assert.Equal(t, http.StatusTooManyRequests, doReq("a"))
	assert.Equal(t, 200, doReq("b"))
}
