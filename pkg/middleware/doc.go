// Package middleware はモックAPIサーバーで使用するGinミドルウェアを提供する。
//
// アクセストークン（JWT）の発行と検証、リクエストIDの伝播とアクセスログ、
// パニックリカバリ、CORS設定を含む。
// エラーレスポンスはすべて {"status", "message", "data"} の形式で返す。
package middleware
