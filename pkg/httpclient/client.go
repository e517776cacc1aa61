package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/capstone/pkg/tokenstore"
)

const (
	// DefaultTimeout は通常のリクエストの既定タイムアウト。
	DefaultTimeout = 10 * time.Second
	// DefaultRefreshPath はリフレッシュエンドポイントの既定パス。
	DefaultRefreshPath = "/auth/refresh"

	// headerRequestID は論理リクエストごとに付与するリクエストIDのヘッダーキー。
	// 再送時も同じ値を使う。
	headerRequestID = "X-Request-ID"
)

// Client はAPIサーバーとの通信に使用する認証付きHTTPクライアント。
// 複数のゴルーチンから同時に使用できる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先APIサーバーのベースURL。
	baseURL string
	// store は資格情報ペアの保存先。
	store tokenstore.Store
	// refreshPath はリフレッシュエンドポイントのパス。
	refreshPath string
	// refreshTimeout はリフレッシュ呼び出しのタイムアウト。
	refreshTimeout time.Duration
	// onSessionEnded はリフレッシュに失敗して資格情報を消去した後に呼ばれる。
	onSessionEnded func()
	// logger はセッション関連のログ出力先。
	logger *log.Logger
	// session はリフレッシュの重複排除と待機列を管理する。
	session *session
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithTimeout は通常のリクエストのタイムアウトを設定する。
// WithRefreshTimeoutを指定しない場合、リフレッシュ呼び出しにも同じ値を使う。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRefreshTimeout はリフレッシュ呼び出しのタイムアウトを設定する。
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

// WithRefreshPath はリフレッシュエンドポイントのパスを設定する。
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSessionEndedHook はリフレッシュ失敗でセッションが終了したときに呼ばれる関数を設定する。
// ログイン画面への誘導など、呼び出し側の後処理に使用する。
func WithSessionEndedHook(fn func()) Option {
	return func(c *Client) {
		c.onSessionEnded = fn
	}
}

// WithLogger はセッション関連のログ出力先を設定する。既定では出力しない。
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New は新しいクライアントを生成する。
// baseURLには接続先APIサーバーのベースURL（例: "http://localhost:8080"）を指定する。
func New(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:     baseURL,
		store:       store,
		refreshPath: DefaultRefreshPath,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = c.httpClient.Timeout
	}
	c.session = &session{}
	return c
}

// Store はクライアントが使用する資格情報ストアを返す。
func (c *Client) Store() tokenstore.Store {
	return c.store
}

// Request は送信するリクエストの内容。
// 再送時にも同じ内容を送れるよう、ボディはバイト列で保持する。
// 送信後に内容を書き換えてはならない。
type Request struct {
	// Method はHTTPメソッド。
	Method string
	// Path はベースURLからの相対パス。
	Path string
	// Query はクエリパラメータ。
	Query url.Values
	// Body はリクエストボディ。
	Body []byte
	// Header は追加のリクエストヘッダー。
	Header http.Header
	// Anonymous が真の場合、Authorizationヘッダーを付与せず、401でもアクセストークンを更新しない。
	// ログインのように資格情報を必要としないリクエストに使う。
	Anonymous bool
}

// NewJSONRequest はbodyをJSONにシリアライズしたリクエストを生成する。
// bodyがnilの場合はボディなしのリクエストになる。
func NewJSONRequest(method, path string, query url.Values, body any) (*Request, error) {
	req := &Request{Method: method, Path: path, Query: query}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		req.Body = data
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return req, nil
}

// Response は2xxのレスポンス。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header はレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ。
	Body []byte
}

// DecodeJSON はレスポンスボディをvにデシリアライズする。
// ボディが空の場合は何もしない。
func (r *Response) DecodeJSON(v any) error {
	if v == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}

// attempt はリクエストの送信1回分を表す。
// 再送済みかどうかを元のRequestに書き込まず、この値で受け渡す。
type attempt struct {
	req       *Request
	requestID string
	retried   bool
}

// retry は再送済みの印を付けたattemptを返す。
func (a attempt) retry() attempt {
	a.retried = true
	return a
}

// Do はリクエストを送信する。
// 2xx以外のレスポンスは *APIError を含むエラーとして返す。
// 初回の401ではアクセストークンを更新して一度だけ再送する。
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.execute(ctx, attempt{req: req, requestID: uuid.NewString()})
}

// execute は1回分の送信と、401の場合の更新・再送を行う。
func (c *Client) execute(ctx context.Context, a attempt) (*Response, error) {
	if a.req.Anonymous {
		resp, err := c.send(ctx, a, "")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newAPIError(resp)
		}
		return resp, nil
	}

	access, err := c.store.Access(ctx)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの取得に失敗: %w", err)
	}

	resp, err := c.send(ctx, a, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := newAPIError(resp)
	if resp.StatusCode != http.StatusUnauthorized {
		return nil, apiErr
	}
	if a.retried {
		return nil, fmt.Errorf("%w: %w", ErrAuthExpiredAfterRetry, apiErr)
	}

	if err := c.recoverSession(ctx, access, apiErr); err != nil {
		return nil, err
	}
	return c.execute(ctx, a.retry())
}

// send はリクエストを1回送信する。accessが空でなければAuthorizationヘッダーを付与する。
func (c *Client) send(ctx context.Context, a attempt, access string) (*Response, error) {
	u := c.baseURL + a.req.Path
	if len(a.req.Query) > 0 {
		u += "?" + a.req.Query.Encode()
	}

	var bodyReader io.Reader
	if a.req.Body != nil {
		bodyReader = bytes.NewReader(a.req.Body)
	}

	req, err := http.NewRequestWithContext(ctx, a.req.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for k, vs := range a.req.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if a.req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, a.requestID)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスの読み取りに失敗: %w", ErrNetwork, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, result any) error {
	return c.DoJSON(ctx, http.MethodGet, path, query, nil, result)
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.DoJSON(ctx, http.MethodPost, path, nil, body, result)
}

// PutJSON は指定パスにJSONボディでPUTリクエストを送信する。
func (c *Client) PutJSON(ctx context.Context, path string, body any, result any) error {
	return c.DoJSON(ctx, http.MethodPut, path, nil, body, result)
}

// PatchJSON は指定パスにJSONボディでPATCHリクエストを送信する。
func (c *Client) PatchJSON(ctx context.Context, path string, query url.Values, body any, result any) error {
	return c.DoJSON(ctx, http.MethodPatch, path, query, body, result)
}

// DeleteJSON は指定パスにDELETEリクエストを送信する。
func (c *Client) DeleteJSON(ctx context.Context, path string, result any) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, nil, result)
}

// DoJSON はJSON形式のリクエストを送信する共通処理。
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	req, err := NewJSONRequest(method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(result)
}
