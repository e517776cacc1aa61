// Package api はcapstoneプロジェクト管理APIの型付きクライアントを提供する。
//
// すべての呼び出しは httpclient.Client を経由するため、
// アクセストークンの付与と期限切れ時の更新・再送は呼び出し側で意識する必要がない。
// 課題とイベントを変更する操作は、成功後にスケジュール変更を通知する。
package api
