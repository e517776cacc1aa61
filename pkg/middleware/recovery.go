package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はハンドラー内のパニックを500のエラーレスポンスに変換するGinミドルウェアを返す。
// パニックの値とスタックトレースはリクエストID付きでloggerに出力する。
func Recovery(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Printf("[PANIC] %s %s request_id=%s: %v\n%s",
				c.Request.Method, c.Request.URL.Path, GetRequestID(c), r, debug.Stack())
			AbortWithError(c, http.StatusInternalServerError, "内部サーバーエラーが発生しました")
		}()
		c.Next()
	}
}
