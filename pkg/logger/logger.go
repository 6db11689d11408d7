// Package logger はslogベースの構造化ロガーを提供する。
//
// 開発時はtintによる色付きのテキスト形式、本番環境ではJSON形式で出力する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Config はロガーの設定。
type Config struct {
	// Level は出力する最小ログレベル。
	Level slog.Level
	// Format は出力形式。"json" または "text"。
	Format string
	// Output は出力先。nilの場合は標準出力。
	Output io.Writer
}

// Logger はslog.Loggerのラッパー。
type Logger struct {
	*slog.Logger
}

// New は設定からロガーを生成する。
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.Format == "json" {
		opts := &slog.HandlerOptions{
			Level: cfg.Level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format(time.RFC3339))
				}
				return a
			},
		}
		return &Logger{Logger: slog.New(slog.NewJSONHandler(out, opts))}
	}

	return &Logger{Logger: slog.New(tint.NewHandler(out, &tint.Options{
		Level:      cfg.Level,
		TimeFormat: time.Kitchen,
	}))}
}

// Discard は何も出力しないロガーを返す。テストで使用する。
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// FromConfig は文字列で指定されたレベルと形式からConfigを生成する。
// 未知のレベルはinfoとして扱う。APP_ENV=productionの場合は常にJSON形式になる。
func FromConfig(level, format string) Config {
	cfg := Config{Level: slog.LevelInfo, Format: "text"}

	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = slog.LevelDebug
	case "warn":
		cfg.Level = slog.LevelWarn
	case "error":
		cfg.Level = slog.LevelError
	}

	if format != "" {
		cfg.Format = format
	}
	if os.Getenv("APP_ENV") == "production" {
		cfg.Format = "json"
	}
	return cfg
}

// WithComponent はコンポーネント名を付与したロガーを返す。
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(slog.String("component", component))}
}
