package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/capstone/pkg/httpclient"
	"github.com/nao1215/capstone/pkg/tokenstore"
)

// loginRequest はログインAPIのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// logoutRequest はログアウトAPIのリクエストボディ。
type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Login はログインして資格情報を保存し、ユーザー情報を返す。
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	req, err := httpclient.NewJSONRequest(http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req.Anonymous = true

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ログインに失敗: %w", err)
	}
	var out LoginResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("ログインレスポンスにアクセストークンが含まれていません")
	}

	store := c.http.Store()
	if err := store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("以前の資格情報の消去に失敗: %w", err)
	}
	if err := tokenstore.SetPair(ctx, store, out.AccessToken, out.RefreshToken); err != nil {
		return nil, fmt.Errorf("資格情報の保存に失敗: %w", err)
	}
	return &out.User, nil
}

// Logout はサーバーにログアウトを通知し、資格情報を消去する。
// サーバーへの通知に失敗しても資格情報は消去する。
func (c *Client) Logout(ctx context.Context) error {
	store := c.http.Store()
	refresh, err := store.Refresh(ctx)
	if err != nil {
		refresh = ""
	}

	req, err := httpclient.NewJSONRequest(http.MethodPost, "/auth/logout", nil, logoutRequest{RefreshToken: refresh})
	if err == nil {
		req.Anonymous = true
		_, _ = c.http.Do(ctx, req)
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("資格情報の消去に失敗: %w", err)
	}
	return nil
}

// Refresh はアクセストークンを明示的に更新する。
func (c *Client) Refresh(ctx context.Context) error {
	return c.http.Refresh(ctx)
}

// Me はログイン中のユーザー情報を取得する。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.http.GetJSON(ctx, "/api/me", nil, &out); err != nil {
		return nil, fmt.Errorf("ユーザー情報の取得に失敗: %w", err)
	}
	return &out, nil
}

// Health はサーバーの稼働状況を返す。失敗した場合はエラーではなくDOWNを返す。
func (c *Client) Health(ctx context.Context) Health {
	var out Health
	if err := c.http.GetJSON(ctx, "/api/health", nil, &out); err != nil || out.Status == "" {
		return Health{Status: HealthDown}
	}
	return out
}
