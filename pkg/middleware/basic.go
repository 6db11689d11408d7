package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// contextKeyEmail はBasic認証済みユーザーのメールアドレスを格納するGinコンテキストキー。
const contextKeyEmail = "email"

// CredentialChecker はメールアドレスとAPIキーの組が有効かを判定する関数。
type CredentialChecker func(ctx context.Context, email, apiKey string) (bool, error)

// BasicAuth は "email:api_key" 形式のBasic認証を検証するGinミドルウェアを返す。
// 認証方式名の大文字小文字は区別しない（"BASIC" も受け付ける）。
// 検証に成功した場合、コンテキストにメールアドレスを設定する。
func BasicAuth(check CredentialChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, apiKey, ok := c.Request.BasicAuth()
		if !ok || email == "" || apiKey == "" {
			c.Header("WWW-Authenticate", `Basic realm="pushrelay"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Basic認証の資格情報が必要です",
			})
			return
		}

		valid, err := check(c.Request.Context(), email, apiKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "資格情報の検証に失敗しました",
			})
			return
		}
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "メールアドレスまたはAPIキーが不正です",
			})
			return
		}

		c.Set(contextKeyEmail, email)
		c.Next()
	}
}

// GetEmail はGinコンテキストから認証済みユーザーのメールアドレスを取得する。
// BasicAuthミドルウェアが事前に適用されている必要がある。
func GetEmail(c *gin.Context) string {
	email, _ := c.Get(contextKeyEmail)
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}
