// Package tokenstore はアクセストークンとリフレッシュトークンの組（資格情報ペア）を
// 永続化するストアを提供する。
//
// クライアントごとに有効な資格情報ペアは常に1組であり、ログインで作成され、
// リフレッシュ成功で置き換えられ、ログアウトまたはリフレッシュ失敗で消去される。
// 保存先のキー名は Keys で変更でき、未指定の場合は "access_token" と
// "refresh_token" を使用する。
//
// バックエンドとしてメモリ、JSONファイル、Redis、SQLiteを用意している。
package tokenstore
