package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/internal/config"
	"github.com/nao1215/capstone/pkg/httpclient"
	"github.com/nao1215/capstone/pkg/schedulebus"
)

// app はサブコマンドの実行に必要な依存をまとめる。
type app struct {
	cfg    *config.Client
	client *api.Client
	bus    *schedulebus.Bus
	stdout io.Writer
	logger *log.Logger
}

// command はサブコマンドの定義。
type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

// run はコマンドライン引数を解釈してサブコマンドを実行し、終了コードを返す。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)

	fs := flag.NewFlagSet("capstonectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", ".envファイルのパス")
	verbose := fs.Bool("v", false, "セッション関連のログを出力する")
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "不明なコマンドです: %s\n", name)
		printUsage(stderr, fs)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Printf("設定の読み込みに失敗: %v", err)
		return 1
	}

	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		logger.Printf("資格情報ストアのオープンに失敗: %v", err)
		return 1
	}
	defer closeStore() //nolint:errcheck

	bus := schedulebus.New()
	var notifier schedulebus.Notifier = bus
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("capstonectl"))
		if err != nil {
			logger.Printf("NATSへの接続に失敗: %v", err)
			return 1
		}
		defer nc.Close()

		relay := schedulebus.NewRelay(bus, nc, cfg.NATS.Prefix, logger)
		if err := relay.Start(); err != nil {
			logger.Printf("スケジュール変更の中継開始に失敗: %v", err)
			return 1
		}
		defer relay.Close() //nolint:errcheck
		notifier = relay
	}

	opts := cfg.ClientOptions()
	opts = append(opts, httpclient.WithSessionEndedHook(func() {
		logger.Printf("セッションが終了しました。capstonectl login で再ログインしてください")
	}))
	if *verbose {
		opts = append(opts, httpclient.WithLogger(logger))
	}

	a := &app{
		cfg:    cfg,
		client: api.New(httpclient.New(cfg.BaseURL, store, opts...), api.WithNotifier(notifier)),
		bus:    bus,
		stdout: stdout,
		logger: logger,
	}
	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		logger.Printf("%s: %v", name, err)
		if httpclient.IsSessionEnded(err) {
			return 3
		}
		return 1
	}
	return 0
}

// printUsage は使い方を出力する。
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "使い方: capstonectl [-env file] [-v] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "グローバルフラグ:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "コマンド:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, commands[name].usage)
	}
}

// printJSON はvを整形したJSONとして出力する。
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// newFlagSet はサブコマンド用のFlagSetを生成する。
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.logger.Writer())
	return fs
}

// requireProject は -project の指定を検証する。
func requireProject(id int64) error {
	if id <= 0 {
		return errors.New("-project は必須です")
	}
	return nil
}

// parseStatus は課題の状態を大文字に正規化する。
func parseStatus(v string) api.AssignmentStatus {
	return api.AssignmentStatus(strings.ToUpper(v))
}
