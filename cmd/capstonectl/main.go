// capstoneプロジェクト管理APIのコマンドラインクライアントのエントリポイント。
// 資格情報を設定されたストアに保存し、アクセストークンが失効した場合は自動的に更新する。
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
