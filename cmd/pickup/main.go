// ピックアップサービスのエントリポイント。
// ユーザーごとの未取得通知をSQLiteに保持し、リレーからの要求に応じて1件ずつ返す。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/internal/pickup"
	"github.com/nao1215/pushrelay/pkg/logger"
)

func main() {
	cfg := config.LoadPickup()
	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	server, err := pickup.NewServer(context.Background(), cfg, log)
	if err != nil {
		log.Error("ピックアップサーバーの初期化に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer server.Close()

	log.Info("ピックアップサービスを起動します", slog.String("port", cfg.Port))
	if err := server.Run(); err != nil {
		log.Error("ピックアップサービスの起動に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
