package mockapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// refreshRequest はトークン更新リクエストのJSON構造。
type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// refreshResponse はトークン更新レスポンスのJSON構造。
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// logoutRequest はログアウトリクエストのJSON構造。
type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// toUser はDB行をAPIのユーザー表現に変換する。
func toUser(u User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}

// issueTokens はユーザーに新しいアクセストークンとリフレッシュトークンを発行する。
func (s *Server) issueTokens(ctx context.Context, u User) (access, refresh string, err error) {
	access, err = middleware.GenerateJWT(s.jwtSecret, s.accessTTL, u.ID, u.Email, u.Role)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	expiresAt := s.now().Add(s.refreshTTL).Unix()
	if err := s.queries.CreateRefreshToken(ctx, refresh, u.ID, expiresAt); err != nil {
		return "", "", fmt.Errorf("リフレッシュトークンの保存に失敗: %w", err)
	}
	return access, refresh, nil
}

// handleLogin はメールアドレスとパスワードでログインするハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "メールアドレスとパスワードは必須です")
			return
		}

		ctx := c.Request.Context()
		u, err := s.queries.GetUserByEmail(ctx, req.Email)
		if errors.Is(err, sql.ErrNoRows) {
			middleware.AbortWithError(c, http.StatusUnauthorized, "メールアドレスまたはパスワードが正しくありません")
			return
		}
		if err != nil {
			s.internalError(c, "ユーザーの取得に失敗しました", err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			middleware.AbortWithError(c, http.StatusUnauthorized, "メールアドレスまたはパスワードが正しくありません")
			return
		}

		access, refresh, err := s.issueTokens(ctx, u)
		if err != nil {
			s.internalError(c, "トークンの発行に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, api.LoginResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			User:         toUser(u),
		})
	}
}

// handleRefresh はリフレッシュトークンを新しいトークンの組と交換するハンドラを返す。
// 使用したリフレッシュトークンは失効させる。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "refreshTokenは必須です")
			return
		}

		ctx := c.Request.Context()
		rt, err := s.queries.GetRefreshToken(ctx, req.RefreshToken)
		if errors.Is(err, sql.ErrNoRows) {
			middleware.AbortWithError(c, http.StatusUnauthorized, "リフレッシュトークンが無効です")
			return
		}
		if err != nil {
			s.internalError(c, "リフレッシュトークンの取得に失敗しました", err)
			return
		}
		if rt.Revoked || rt.ExpiresAt <= s.now().Unix() {
			middleware.AbortWithError(c, http.StatusUnauthorized, "リフレッシュトークンが無効です")
			return
		}

		// 同じトークンでの同時更新は先に失効させた側だけが成功する。
		n, err := s.queries.RevokeRefreshToken(ctx, rt.Token)
		if err != nil {
			s.internalError(c, "リフレッシュトークンの失効に失敗しました", err)
			return
		}
		if n == 0 {
			middleware.AbortWithError(c, http.StatusUnauthorized, "リフレッシュトークンが無効です")
			return
		}

		u, err := s.queries.GetUser(ctx, rt.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			middleware.AbortWithError(c, http.StatusUnauthorized, "ユーザーが存在しません")
			return
		}
		if err != nil {
			s.internalError(c, "ユーザーの取得に失敗しました", err)
			return
		}

		access, refresh, err := s.issueTokens(ctx, u)
		if err != nil {
			s.internalError(c, "トークンの発行に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, refreshResponse{AccessToken: access, RefreshToken: refresh})
	}
}

// handleLogout はリフレッシュトークンを失効させるハンドラを返す。
// トークンが無い、または既に無効な場合も204を返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req logoutRequest
		_ = c.ShouldBindJSON(&req)
		if req.RefreshToken != "" {
			if _, err := s.queries.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
				s.internalError(c, "リフレッシュトークンの失効に失敗しました", err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}

// handleMe はログイン中のユーザー情報を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.queries.GetUser(c.Request.Context(), middleware.GetUserID(c))
		if errors.Is(err, sql.ErrNoRows) {
			middleware.AbortWithError(c, http.StatusNotFound, "ユーザーが存在しません")
			return
		}
		if err != nil {
			s.internalError(c, "ユーザーの取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, toUser(u))
	}
}

// handleListUsers は全ユーザーを返すハンドラを返す。管理者のみが呼び出せる。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.queries.ListUsers(c.Request.Context())
		if err != nil {
			s.internalError(c, "ユーザーの取得に失敗しました", err)
			return
		}
		out := make([]api.User, 0, len(rows))
		for _, u := range rows {
			out = append(out, toUser(u))
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleHealth はサーバーの稼働状況を返すハンドラを返す。認証は不要。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, api.Health{Status: "UP", Time: s.now().Format(localDateTime)})
	}
}
