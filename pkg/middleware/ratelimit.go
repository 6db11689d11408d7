package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit はトークンバケットで1秒あたりのリクエスト数を制限するGinミドルウェアを返す。
// バースト数は1秒あたりの上限と同じ。上限を超えたリクエストには429を返す。
// ratePerSecが0以下の場合は制限しない。
func RateLimit(ratePerSec int) gin.HandlerFunc {
	if ratePerSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "リクエストが多すぎます",
			})
			return
		}
		c.Next()
	}
}
