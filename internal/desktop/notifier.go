package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/godbus/dbus/v5"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/logger"
)

const (
	// busName は通知サーバーのバス名。
	busName = "org.freedesktop.Notifications"
	// objectPath は通知サーバーのオブジェクトパス。
	objectPath dbus.ObjectPath = "/org/freedesktop/Notifications"
	// iface は通知サーバーのインターフェース名。
	iface = "org.freedesktop.Notifications"
	// appName は通知の送信元として表示するアプリケーション名。
	appName = "pushrelay"
	// defaultAction は通知本体のクリックを表すアクションキー。
	defaultAction = "default"
	// expireDefault は表示時間を通知サーバーに任せることを表す。
	expireDefault int32 = -1
)

// busObject は通知サーバーのメソッド呼び出しに使うD-Busオブジェクト。
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// ClickFunc は通知がクリックされたときに呼ばれる。
type ClickFunc func(ctx context.Context, n relay.Notification)

// Notifier はD-Busでデスクトップ通知を表示するrelay.Notifier。
type Notifier struct {
	// conn はセッションバスへの接続。
	conn *dbus.Conn
	// obj は通知サーバーのオブジェクト。
	obj busObject
	// shown は表示中の通知の記録。
	shown *tracker
	// log は構造化ロガー。
	log *logger.Logger
}

// New はセッションバスに接続して新しいNotifierを生成する。
func New(log *logger.Logger) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("セッションバスへの接続に失敗: %w", err)
	}
	return &Notifier{
		conn:  conn,
		obj:   conn.Object(busName, objectPath),
		shown: newTracker(),
		log:   log.WithComponent("desktop"),
	}, nil
}

// Disconnect はセッションバスとの接続を閉じる。
func (n *Notifier) Disconnect() error {
	return n.conn.Close()
}

// Show は通知を表示する。同じタグの通知が表示中であれば置き換える。
func (n *Notifier) Show(ctx context.Context, notif relay.Notification) error {
	call := n.obj.CallWithContext(ctx, iface+".Notify", 0,
		appName,
		n.shown.replaces(notif.Tag),
		notif.Icon,
		notif.Title,
		notif.Body,
		[]string{defaultAction, "Open"},
		map[string]dbus.Variant{},
		expireDefault)

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("通知の表示に失敗: %w", err)
	}
	n.shown.add(id, notif)
	return nil
}

// Close は表示中の通知を消去する。IDが不明で同じタグの通知もない場合は何もしない。
func (n *Notifier) Close(ctx context.Context, notif relay.Notification) error {
	id, ok := n.shown.lookup(notif)
	if !ok {
		return nil
	}
	n.shown.remove(id)

	if err := n.obj.CallWithContext(ctx, iface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("通知の消去に失敗: %w", err)
	}
	return nil
}

// Listen は通知サーバーのシグナルを受信し、クリックされた通知をonClickに渡す。
// ctxが終了するまで戻らない。
func (n *Notifier) Listen(ctx context.Context, onClick ClickFunc) error {
	if err := n.conn.AddMatchSignal(
		dbus.WithMatchInterface(iface),
		dbus.WithMatchObjectPath(objectPath),
	); err != nil {
		return fmt.Errorf("シグナルの購読に失敗: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	n.conn.Signal(signals)
	defer n.conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			n.handleSignal(ctx, sig, onClick)
		}
	}
}

// handleSignal は1つのシグナルを処理する。
func (n *Notifier) handleSignal(ctx context.Context, sig *dbus.Signal, onClick ClickFunc) {
	if len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}

	switch sig.Name {
	case iface + ".ActionInvoked":
		action, _ := sig.Body[1].(string)
		if action != defaultAction {
			return
		}
		notif, found := n.shown.get(id)
		if !found {
			n.log.Debug("記録にない通知がクリックされました", slog.Uint64("id", uint64(id)))
			return
		}
		onClick(ctx, notif)
	case iface + ".NotificationClosed":
		n.shown.remove(id)
	}
}

// parseID は通知IDの文字列表現を解析する。
func parseID(s string) (uint32, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint32(id), true
}
