package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/pushrelay/pkg/httpclient"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/narrow"
	"github.com/nao1215/pushrelay/pkg/push"
)

const (
	// PickupPath はピックアップAPIのパス。
	PickupPath = "/api/v1/users/me/pickup_web_notification"
	// DefaultIcon は通知に表示する既定のアイコン。
	DefaultIcon = "/static/images/favicon/android-chrome-192x192.png"
	// FallbackTitle は通知内容を取得できなかった場合の通知タイトル。
	FallbackTitle = "Zulip"
	// FallbackBody は通知内容を取得できなかった場合の通知本文。
	FallbackBody = "Received a notification, but you need to be signed-in to view it!"
)

// Notification は表示する、またはクリックされた通知。
type Notification struct {
	// ID は通知の表示先が割り当てた識別子。表示前は空。
	ID string `json:"id,omitempty"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Icon は通知のアイコン。
	Icon string `json:"icon,omitempty"`
	// Tag は通知の識別タグ。同じタグの通知は置き換えられる。
	Tag string `json:"tag,omitempty"`
	// Data はクリック時に使う非表示データ。代替通知ではnil。
	Data *push.NotificationData `json:"data,omitempty"`
}

// Notifier は通知を表示・消去する。
type Notifier interface {
	// Show は通知を表示する。
	Show(ctx context.Context, n Notification) error
	// Close は表示中の通知を消去する。
	Close(ctx context.Context, n Notification) error
}

// Client はリレーが制御できる開いているページ。
type Client interface {
	// URL はページの現在のURLを返す。
	URL() string
	// PostMessage はページにメッセージを送る。
	PostMessage(ctx context.Context, msg any) error
	// Focus はページを前面に出す。
	Focus(ctx context.Context) error
}

// Clients は開いているページの一覧取得と新しいページの表示を行う。
type Clients interface {
	// MatchAll は開いているページをすべて返す。
	MatchAll(ctx context.Context) ([]Client, error)
	// OpenWindow は指定したパスで新しいページを開く。
	OpenWindow(ctx context.Context, path string) error
}

// Config はリレーの設定。起動後は変更されない。
type Config struct {
	// ServerURL はピックアップAPIを提供するサーバーのベースURL。
	ServerURL string
	// Registration はリレーの登録情報。
	Registration Registration
	// Icon は通知に表示するアイコン。空の場合はDefaultIcon。
	Icon string
	// Timeout はピックアップAPI呼び出しのタイムアウト。0の場合は既定値。
	Timeout time.Duration
}

// Relay はプッシュイベントと通知クリックを処理する。
type Relay struct {
	// cfg はリレーの設定。
	cfg Config
	// pickup はピックアップAPIへの通信クライアント。
	pickup *httpclient.Client
	// notifier は通知の表示先。
	notifier Notifier
	// clients は開いているページの集合。
	clients Clients
	// log は構造化ロガー。
	log *logger.Logger
}

// New は新しいRelayを生成する。
func New(cfg Config, notifier Notifier, clients Clients, log *logger.Logger) *Relay {
	if cfg.Icon == "" {
		cfg.Icon = DefaultIcon
	}

	opts := []httpclient.Option{
		httpclient.WithHeader("Authorization", cfg.Registration.AuthorizationHeader()),
		httpclient.WithExpectedStatus(http.StatusOK),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}

	return &Relay{
		cfg:      cfg,
		pickup:   httpclient.New(strings.TrimRight(cfg.ServerURL, "/"), opts...),
		notifier: notifier,
		clients:  clients,
		log:      log.WithComponent("relay"),
	}
}

// HandlePush はプッシュイベントを処理する。
// ピックアップAPIから通知の詳細を取得して表示する。取得できなかった場合は
// 代替通知を表示する。エラーを返すのは通知の表示自体に失敗した場合のみ。
func (r *Relay) HandlePush(ctx context.Context) error {
	n, err := r.pickupNotification(ctx)
	if err != nil {
		r.log.Warn("通知内容を取得できないため代替通知を表示します",
			slog.String("error", err.Error()))
		n = r.fallbackNotification()
	}

	if err := r.notifier.Show(ctx, n); err != nil {
		return fmt.Errorf("通知の表示に失敗: %w", err)
	}
	return nil
}

// pickupNotification はピックアップAPIから通知の詳細を取得する。
func (r *Relay) pickupNotification(ctx context.Context) (Notification, error) {
	var p push.Payload
	if err := r.pickup.PostJSON(ctx, PickupPath, nil, &p); err != nil {
		return Notification{}, fmt.Errorf("ピックアップAPIの呼び出しに失敗: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Notification{}, err
	}

	return Notification{
		Title: p.Title,
		Body:  p.Body,
		Icon:  r.cfg.Icon,
		Tag:   p.Tag,
		Data:  p.Data(),
	}, nil
}

// fallbackNotification はサインインを促す代替通知を返す。
func (r *Relay) fallbackNotification() Notification {
	return Notification{
		Title: FallbackTitle,
		Body:  FallbackBody,
		Icon:  r.cfg.Icon,
	}
}

// HandleNotificationClick は通知のクリックを処理する。
// ホスト名を含むURLのページが開いていれば最初の1つにナローメッセージを送って
// 前面に出す。そのようなページがないか、どのページにも届かなかった場合は
// ナローを表すURLで新しいページを開く。
func (r *Relay) HandleNotificationClick(ctx context.Context, n Notification) error {
	if err := r.notifier.Close(ctx, n); err != nil {
		r.log.Warn("通知の消去に失敗しました",
			slog.String("id", n.ID),
			slog.String("error", err.Error()))
	}

	clients, err := r.clients.MatchAll(ctx)
	if err != nil {
		return fmt.Errorf("ページ一覧の取得に失敗: %w", err)
	}

	for _, client := range clients {
		if !strings.Contains(client.URL(), r.cfg.Registration.Hostname) {
			continue
		}
		// 一覧の取得後に閉じたページは飛ばして次の候補を試す
		if err := focusClient(ctx, client, n); err != nil {
			r.log.Warn("ページを前面に出せないため次のページを試します",
				slog.String("url", client.URL()),
				slog.String("error", err.Error()))
			continue
		}
		r.log.Debug("既存のページを前面に出しました", slog.String("url", client.URL()))
		return nil
	}

	var ops []narrow.Operator
	if n.Data != nil {
		ops = n.Data.RawOperators
	}
	path := "/" + narrow.OperatorsToHash(ops)
	if err := r.clients.OpenWindow(ctx, path); err != nil {
		return fmt.Errorf("ページを開けません: %w", err)
	}
	r.log.Debug("新しいページを開きました", slog.String("path", path))
	return nil
}

// focusClient はページにナローメッセージを送って前面に出す。
func focusClient(ctx context.Context, client Client, n Notification) error {
	if err := client.PostMessage(ctx, push.NewNarrowMessage(n.Data)); err != nil {
		return fmt.Errorf("ナローメッセージの送信に失敗: %w", err)
	}
	if err := client.Focus(ctx); err != nil {
		return fmt.Errorf("ページを前面に出せません: %w", err)
	}
	return nil
}
