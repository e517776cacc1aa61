package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantCode    int
		wantOrigin  string
		wantHandler bool
	}{
		{
			name:        "許可されたオリジンにはCORSヘッダーが付くこと",
			allowed:     []string{"http://localhost:5173", "https://capstone.example.com"},
			method:      http.MethodGet,
			origin:      "https://capstone.example.com",
			wantCode:    http.StatusOK,
			wantOrigin:  "https://capstone.example.com",
			wantHandler: true,
		},
		{
			name:        "末尾のスラッシュ付きで設定したオリジンも許可されること",
			allowed:     []string{"http://localhost:5173/"},
			method:      http.MethodGet,
			origin:      "http://localhost:5173",
			wantCode:    http.StatusOK,
			wantOrigin:  "http://localhost:5173",
			wantHandler: true,
		},
		{
			name:        "ワイルドカードでは任意のオリジンが許可されること",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			origin:      "http://192.168.0.10:3000",
			wantCode:    http.StatusOK,
			wantOrigin:  "http://192.168.0.10:3000",
			wantHandler: true,
		},
		{
			name:        "許可されていないオリジンにはCORSヘッダーが付かないこと",
			allowed:     []string{"http://localhost:5173"},
			method:      http.MethodGet,
			origin:      "https://evil.example.com",
			wantCode:    http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "Originが無い場合はCORSヘッダーが付かないこと",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			wantCode:    http.StatusOK,
			wantHandler: true,
		},
		{
			name:       "プリフライトは204でハンドラーに渡らないこと",
			allowed:    []string{"http://localhost:5173"},
			method:     http.MethodOptions,
			origin:     "http://localhost:5173",
			wantCode:   http.StatusNoContent,
			wantOrigin: "http://localhost:5173",
		},
		{
			name:     "許可されていないオリジンのプリフライトも204だがヘッダーは付かないこと",
			allowed:  nil,
			method:   http.MethodOptions,
			origin:   "http://localhost:5173",
			wantCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.Handle(tt.method, "/api/projects", func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/projects", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if called != tt.wantHandler {
				t.Errorf("ハンドラー呼び出し = %v, want %v", called, tt.wantHandler)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want %q", got, "Origin")
			}
			if tt.wantOrigin == "" {
				return
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, Content-Type, X-Request-ID" {
				t.Errorf("Access-Control-Allow-Headers = %q", got)
			}
			if got := w.Header().Get("Access-Control-Expose-Headers"); got != HeaderRequestID {
				t.Errorf("Access-Control-Expose-Headers = %q, want %q", got, HeaderRequestID)
			}
		})
	}
}
