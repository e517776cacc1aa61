// Package httpclient はAPIサーバーを呼び出すための認証付きHTTPクライアントを提供する。
//
// すべてのリクエストにアクセストークンを Authorization: Bearer ヘッダーとして付与し、
// 401 Unauthorized を受け取った場合はリフレッシュトークンで一度だけアクセストークンを
// 更新してから元のリクエストを再送する。
//
// 同時に複数のリクエストが401を受け取っても、リフレッシュ呼び出しは1回にまとめられる。
// 更新中に401を受け取ったリクエストは待機列に入り、更新の完了後に登録順（FIFO）で再開する。
// 再送は1リクエストにつき最大1回であり、再送でも401が返った場合はセッション終了として扱う。
// リフレッシュに失敗した場合は資格情報を消去し、待機中のリクエストもすべて失敗させる。
package httpclient
