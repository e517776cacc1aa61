// capstoneプロジェクト管理APIのモックサーバーのエントリポイント。
// ログイン、アクセストークンの更新、プロジェクト・スケジュール・課題のAPIをSQLite上で提供する。
package main

import (
	"context"
	"flag"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/nao1215/capstone/internal/config"
	"github.com/nao1215/capstone/internal/mockapi"
	"github.com/nao1215/capstone/pkg/schedulebus"
)

func main() {
	envFile := flag.String("env", "", ".envファイルのパス")
	flag.Parse()

	cfg, err := config.LoadServer(*envFile)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	var opts []mockapi.Option
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("capstone-mockapi"))
		if err != nil {
			log.Fatalf("NATSへの接続に失敗: %v", err)
		}
		defer nc.Drain() //nolint:errcheck

		bus := schedulebus.New()
		relay := schedulebus.NewRelay(bus, nc, cfg.NATS.Prefix, log.Default())
		if err := relay.Start(); err != nil {
			log.Fatalf("スケジュール変更の中継開始に失敗: %v", err)
		}
		defer relay.Close() //nolint:errcheck
		opts = append(opts, mockapi.WithNotifier(relay))
		log.Printf("スケジュール変更をNATSに中継します: subject=%s", relay.Subject())
	}

	server, err := mockapi.NewServer(context.Background(), cfg, opts...)
	if err != nil {
		log.Fatalf("モックAPIサーバーの初期化に失敗: %v", err)
	}
	defer server.Close() //nolint:errcheck

	log.Printf("モックAPIサーバーを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("モックAPIサーバーの起動に失敗: %v", err)
	}
}
