package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork はレスポンスを受け取れなかったことを表す。リフレッシュや再送は行わない。
	ErrNetwork = errors.New("ネットワークエラー")
	// ErrAuthExpiredAfterRetry は再送したリクエストでも401が返ったことを表す。
	// 呼び出し側はセッション終了として扱う。
	ErrAuthExpiredAfterRetry = errors.New("再送後も認証に失敗しました")
	// ErrRefreshFailed はアクセストークンの更新に失敗したことを表す。
	// 資格情報は消去され、再ログインが必要になる。
	ErrRefreshFailed = errors.New("アクセストークンの更新に失敗しました")
)

// APIError はAPIサーバーが2xx以外のステータスを返したことを表す。
// エンドポイントによらず同じ形で呼び出し側に返す。
type APIError struct {
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Message はエラーメッセージ。レスポンスの message または error フィールドから取得する。
	Message string `json:"message"`
	// Data はレスポンスボディ。JSONでない場合は文字列としてJSON化したもの。
	Data json.RawMessage `json:"data,omitempty"`
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, message=%s", e.Status, e.Message)
}

// newAPIError はレスポンスからAPIErrorを組み立てる。
func newAPIError(resp *Response) *APIError {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}
	if len(resp.Body) == 0 {
		return apiErr
	}

	if !json.Valid(resp.Body) {
		apiErr.Data, _ = json.Marshal(string(resp.Body))
		return apiErr
	}
	apiErr.Data = json.RawMessage(resp.Body)

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

// StatusCode はエラーに含まれるHTTPステータスコードを返す。
// APIErrorを含まない場合は0を返す。
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized はエラーが401 Unauthorizedによるものかを返す。
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsSessionEnded はエラーが再ログインを必要とする状態を表すかを返す。
func IsSessionEnded(err error) bool {
	return errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrAuthExpiredAfterRetry)
}
