package relay

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/nao1215/pushrelay/pkg/logger"
)

// LogNotifier は通知をログに出力するNotifier。
// デスクトップ環境のないホストで使用する。クリックは
// POST /api/v1/notifications/click で外部から通知する。
type LogNotifier struct {
	// log は構造化ロガー。
	log *logger.Logger
	// seq は通知IDの採番に使うカウンタ。
	seq atomic.Uint64
}

// NewLogNotifier は新しいLogNotifierを生成する。
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.WithComponent("notifier")}
}

// Show は通知の内容をログに出力する。
func (l *LogNotifier) Show(_ context.Context, n Notification) error {
	id := strconv.FormatUint(l.seq.Add(1), 10)
	attrs := []any{
		slog.String("id", id),
		slog.String("title", n.Title),
		slog.String("body", n.Body),
		slog.String("tag", n.Tag),
	}
	if n.Data != nil {
		attrs = append(attrs, slog.Int("operators", len(n.Data.RawOperators)))
	}
	l.log.Info("通知を表示します", attrs...)
	return nil
}

// Close は通知の消去をログに出力する。
func (l *LogNotifier) Close(_ context.Context, n Notification) error {
	l.log.Info("通知を消去します",
		slog.String("id", n.ID),
		slog.String("tag", n.Tag))
	return nil
}
