package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/nao1215/capstone/pkg/tokenstore"
)

// State はクライアントのセッション状態を表す。
type State string

const (
	// StateAuthenticated はアクセストークンを保持している状態。
	StateAuthenticated State = "AUTHENTICATED"
	// StateRefreshing はアクセストークンを更新中の状態。
	StateRefreshing State = "REFRESHING"
	// StateLoggedOut は資格情報を持たない状態。再ログインまでこの状態が続く。
	StateLoggedOut State = "LOGGED_OUT"
)

// errNoRefreshToken はリフレッシュトークンが保存されていないことを表す。
var errNoRefreshToken = errors.New("リフレッシュトークンがありません")

// session はリフレッシュ中フラグと待機列を保持する。
// 待機列はリフレッシュ1回分の間だけ存在し、完了時に必ず空になる。
type session struct {
	mu         sync.Mutex
	refreshing bool
	// waiters は更新完了を待つリクエストの通知先。登録順に通知する。
	waiters []chan error
}

// refreshRequest はリフレッシュエンドポイントへのリクエストボディ。
type refreshRequest struct {
	// RefreshToken は保存済みのリフレッシュトークン。
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse はリフレッシュエンドポイントのレスポンスボディ。
type refreshResponse struct {
	// AccessToken は新しいアクセストークン。
	AccessToken string `json:"accessToken"`
	// RefreshToken はローテーションされた新しいリフレッシュトークン。サーバーが返した場合のみ存在する。
	RefreshToken string `json:"refreshToken,omitempty"`
}

// State は現在のセッション状態を返す。
func (c *Client) State(ctx context.Context) (State, error) {
	c.session.mu.Lock()
	refreshing := c.session.refreshing
	c.session.mu.Unlock()
	if refreshing {
		return StateRefreshing, nil
	}

	access, err := c.store.Access(ctx)
	if err != nil {
		return "", fmt.Errorf("アクセストークンの取得に失敗: %w", err)
	}
	if access == "" {
		return StateLoggedOut, nil
	}
	return StateAuthenticated, nil
}

// Refresh はアクセストークンを明示的に更新する。
// 更新が進行中の場合は新たに開始せず、その結果を待つ。
// 失敗した場合は資格情報を消去し、ErrRefreshFailed を含むエラーを返す。
func (c *Client) Refresh(ctx context.Context) error {
	c.session.mu.Lock()
	if c.session.refreshing {
		refreshErr, err := c.join(ctx)
		if err != nil {
			return err
		}
		if refreshErr != nil {
			return fmt.Errorf("%w: %w", ErrRefreshFailed, refreshErr)
		}
		return nil
	}

	if err := c.lead(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}

// recoverSession は初回の401を受けたリクエストについて、再送できる状態になるまで待つ。
// sentAccessは失敗したリクエストに付与したアクセストークン、causeはその401エラー。
// nilを返した場合、呼び出し側は新しいアクセストークンで一度だけ再送する。
func (c *Client) recoverSession(ctx context.Context, sentAccess string, cause *APIError) error {
	s := c.session

	s.mu.Lock()
	if s.refreshing {
		refreshErr, err := c.join(ctx)
		if err != nil {
			return err
		}
		if refreshErr != nil {
			return fmt.Errorf("%w: %w", ErrRefreshFailed, cause)
		}
		return nil
	}

	// 送信後に別の呼び出しが更新を終えていれば、新しいトークンでそのまま再送する。
	current, err := c.store.Access(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("アクセストークンの取得に失敗: %w", err)
	}
	if current != "" && current != sentAccess {
		s.mu.Unlock()
		return nil
	}

	if err := c.lead(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, cause)
	}
	return nil
}

// join は進行中のリフレッシュの待機列に加わり、完了を待つ。
// session.muを保持した状態で呼び出し、この関数内で解放する。
// refreshErrはリフレッシュの結果、errは待機自体の中断（ctxのキャンセル）を表す。
func (c *Client) join(ctx context.Context) (refreshErr error, err error) {
	s := c.session
	done := make(chan error, 1)
	s.waiters = append(s.waiters, done)
	s.mu.Unlock()

	// 待機列からの取り消しはできない。呼び出し元が先に抜けても通知はバッファに捨てられる。
	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lead はリフレッシュを実行し、完了後に待機列へ登録順に結果を通知する。
// session.muを保持した状態で呼び出し、この関数内で解放する。
func (c *Client) lead(ctx context.Context) error {
	s := c.session
	s.refreshing = true
	s.mu.Unlock()

	refreshErr := c.refresh(ctx)

	s.mu.Lock()
	s.refreshing = false
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, done := range waiters {
		done <- refreshErr
	}

	if refreshErr != nil {
		c.logger.Printf("[Session] アクセストークンの更新に失敗したためログアウトしました: waiters=%d, error=%v", len(waiters), refreshErr)
		if c.onSessionEnded != nil {
			c.onSessionEnded()
		}
		return refreshErr
	}
	c.logger.Printf("[Session] アクセストークンを更新しました: waiters=%d", len(waiters))
	return nil
}

// refresh はリフレッシュエンドポイントを呼び出して資格情報を更新する。
// 失敗した場合は資格情報を消去する。
func (c *Client) refresh(ctx context.Context) error {
	// 呼び出し元のキャンセルで全待機者のセッションが失われないよう、キャンセルは引き継がない。
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	if err := c.exchangeRefreshToken(ctx); err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Printf("[Session] 資格情報の消去に失敗: %v", clearErr)
		}
		return err
	}
	return nil
}

// exchangeRefreshToken はリフレッシュトークンを新しいアクセストークンと交換して保存する。
// このリクエストには認証ヘッダーを付与せず、401でも再試行しない。
func (c *Client) exchangeRefreshToken(ctx context.Context) error {
	rt, err := c.store.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("リフレッシュトークンの取得に失敗: %w", err)
	}
	if rt == "" {
		return errNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: rt})
	if err != nil {
		return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: レスポンスの読み取りに失敗: %w", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(&Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody})
	}

	var out refreshResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("リフレッシュレスポンスのデシリアライズに失敗: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("リフレッシュレスポンスにアクセストークンが含まれていません")
	}

	// リフレッシュトークンはサーバーが返した場合のみ差し替える。
	if err := tokenstore.SetPair(ctx, c.store, out.AccessToken, out.RefreshToken); err != nil {
		return fmt.Errorf("資格情報の保存に失敗: %w", err)
	}
	return nil
}
