package middleware

import "github.com/gin-gonic/gin"

// ErrorResponse はAPIが返すエラーレスポンスのボディ。
type ErrorResponse struct {
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Message は人が読めるエラーメッセージ。
	Message string `json:"message"`
	// Data は追加情報。無い場合はnull。
	Data any `json:"data"`
}

// AbortWithError は後続のハンドラーを中断してエラーレスポンスを返す。
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Status: status, Message: message})
}

// AbortWithErrorData は追加情報付きのエラーレスポンスを返す。
func AbortWithErrorData(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, ErrorResponse{Status: status, Message: message, Data: data})
}
