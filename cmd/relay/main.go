// 通知リレーのエントリポイント。
// プッシュイベントのWebhookを受けてピックアップAPIから通知を取得して表示し、
// 通知のクリックで開いているページを前面に出すか新しく開く。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/internal/desktop"
	"github.com/nao1215/pushrelay/internal/pagehub"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/logger"
)

func main() {
	cfg := config.LoadRelay()
	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	if err := run(cfg, log); err != nil {
		log.Error("通知リレーの実行に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run はリレーを組み立ててHTTPサーバーを起動する。
func run(cfg config.Relay, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := relay.ParseRegistration(cfg.Registration)
	if err != nil {
		return err
	}

	hub, err := pagehub.NewHub(cfg.ServerURL, pagehub.XDGOpen, log)
	if err != nil {
		return err
	}

	relayCfg := relay.Config{
		ServerURL:    cfg.ServerURL,
		Registration: reg,
		Icon:         cfg.Icon,
		Timeout:      cfg.PickupTimeout,
	}

	var r *relay.Relay
	switch cfg.Notifier {
	case "log":
		r = relay.New(relayCfg, relay.NewLogNotifier(log), hub, log)
	default:
		notifier, err := desktop.New(log)
		if err != nil {
			return err
		}
		defer notifier.Disconnect()

		r = relay.New(relayCfg, notifier, hub, log)
		go func() {
			err := notifier.Listen(ctx, func(ctx context.Context, n relay.Notification) {
				if err := r.HandleNotificationClick(ctx, n); err != nil {
					log.Error("通知クリックの処理に失敗", slog.String("error", err.Error()))
				}
			})
			if err != nil && ctx.Err() == nil {
				log.Error("通知シグナルの受信に失敗", slog.String("error", err.Error()))
			}
		}()
	}

	log.Info("通知リレーを起動します",
		slog.String("port", cfg.Port),
		slog.String("server", cfg.ServerURL),
		slog.String("hostname", reg.Hostname),
		slog.String("notifier", cfg.Notifier))
	server := relay.NewServer(relay.ServerConfig{Port: cfg.Port, PushRatePerSec: cfg.PushRatePerSec}, r, hub, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("通知リレーを停止します")
		return nil
	case err := <-errCh:
		return err
	}
}
