// Package config は環境変数と.envファイルからサービスの設定を読み込む。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SQLiteOptions はpickupサービスのSQLite接続に付けるDSNオプション。
// トランザクションは開始時に書き込みロックを取る。
const SQLiteOptions = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Pickup はpickupサービスの設定。
type Pickup struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースのDSN。
	DatabasePath string
	// JWTSecret は内部APIのサービス間トークン検証用の秘密鍵。
	JWTSecret string
	// Hostname はリレー登録クエリに含めるホスト名。
	Hostname string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// LogLevel はログレベル。
	LogLevel string
	// LogFormat はログ形式。
	LogFormat string
}

// Relay はrelayデーモンの設定。
type Relay struct {
	// Port はWebhookとページ接続を受け付けるHTTPサーバーのリッスンポート。
	Port string
	// ServerURL はピックアップAPIを提供するサーバーのベースURL。
	ServerURL string
	// Registration は "email:api_key-hostname" 形式のリレー登録クエリ。
	Registration string
	// Notifier は通知の表示方法。"desktop" または "log"。
	Notifier string
	// Icon は通知に表示するアイコンのパスまたはURL。
	Icon string
	// PickupTimeout はピックアップAPI呼び出しのタイムアウト。
	PickupTimeout time.Duration
	// PushRatePerSec はWebhookで受け付けるプッシュイベントの1秒あたりの上限。0以下は無制限。
	PushRatePerSec int
	// LogLevel はログレベル。
	LogLevel string
	// LogFormat はログ形式。
	LogFormat string
}

// loadDotEnv はカレントディレクトリの.envファイルがあれば読み込む。
// 既に設定されている環境変数は上書きしない。
func loadDotEnv() {
	_ = godotenv.Load(".env")
}

// LoadPickup はpickupサービスの設定を読み込む。
func LoadPickup() Pickup {
	loadDotEnv()
	return Pickup{
		Port:           getEnvOr("PORT", "8090"),
		DatabasePath:   getEnvOr("DATABASE_PATH", "/data/pickup.db?"+SQLiteOptions),
		JWTSecret:      getEnvOr("JWT_SECRET", "dev-secret-key"),
		Hostname:       getEnvOr("PICKUP_HOSTNAME", "localhost"),
		AllowedOrigins: splitList(getEnvOr("ALLOWED_ORIGINS", "http://localhost:8090")),
		LogLevel:       getEnvOr("LOG_LEVEL", "info"),
		LogFormat:      getEnvOr("LOG_FORMAT", "text"),
	}
}

// LoadRelay はrelayデーモンの設定を読み込む。
func LoadRelay() Relay {
	loadDotEnv()
	return Relay{
		Port:           getEnvOr("PORT", "8091"),
		ServerURL:      strings.TrimRight(getEnvOr("RELAY_SERVER_URL", "http://localhost:8090"), "/"),
		Registration:   os.Getenv("RELAY_REGISTRATION"),
		Notifier:       getEnvOr("RELAY_NOTIFIER", "desktop"),
		Icon:           getEnvOr("RELAY_ICON", "/static/images/favicon/android-chrome-192x192.png"),
		PickupTimeout:  getDurationOr("RELAY_PICKUP_TIMEOUT", 30*time.Second),
		PushRatePerSec: getIntOr("RELAY_PUSH_RATE", 5),
		LogLevel:       getEnvOr("LOG_LEVEL", "info"),
		LogFormat:      getEnvOr("LOG_FORMAT", "text"),
	}
}

// getEnvOr は環境変数の値を返す。未設定または空の場合はfallbackを返す。
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDurationOr は環境変数を時間として解釈する。解釈できない場合はfallbackを返す。
func getDurationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getIntOr は環境変数を整数として解釈する。解釈できない場合はfallbackを返す。
func getIntOr(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// splitList はカンマ区切りの値を空白を除いて分割する。空の要素は捨てる。
func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
