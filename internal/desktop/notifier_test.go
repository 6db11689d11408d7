package desktop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/push"
)

// busCall は通知サーバーへの1回のメソッド呼び出し。
type busCall struct {
	method string
	args   []interface{}
}

// fakeBus は呼び出しを記録し、連番の通知IDを返す通知サーバー。
type fakeBus struct {
	mu     sync.Mutex
	calls  []busCall
	nextID uint32
	err    error
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busCall{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	if method == iface+".Notify" {
		// replaces_id が指定されていればそのIDを使い回す
		if replaces, _ := args[1].(uint32); replaces != 0 {
			return &dbus.Call{Body: []interface{}{replaces}}
		}
		f.nextID++
		return &dbus.Call{Body: []interface{}{f.nextID}}
	}
	return &dbus.Call{}
}

// newTestNotifier はfakeBusに接続したNotifierを生成する。
func newTestNotifier() (*Notifier, *fakeBus) {
	bus := &fakeBus{}
	return &Notifier{obj: bus, shown: newTracker(), log: logger.Discard()}, bus
}

// TestNotifier_Show は通知の表示とタグによる置き換えを検証する。
func TestNotifier_Show(t *testing.T) {
	t.Parallel()

	t.Run("Notifyの引数が通知の内容になること", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()

		err := n.Show(t.Context(), relay.Notification{Title: "Hamlet", Body: "hi", Icon: "icon.png", Tag: "t1"})
		if err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		if len(bus.calls) != 1 {
			t.Fatalf("呼び出し回数 = %d, want 1", len(bus.calls))
		}
		args := bus.calls[0].args
		if bus.calls[0].method != iface+".Notify" {
			t.Errorf("method = %q", bus.calls[0].method)
		}
		if args[0] != appName || args[1] != uint32(0) || args[2] != "icon.png" || args[3] != "Hamlet" || args[4] != "hi" {
			t.Errorf("args = %v", args)
		}
		if args[7] != expireDefault {
			t.Errorf("expire_timeout = %v, want %d", args[7], expireDefault)
		}
	})

	t.Run("同じタグの通知は置き換えられること", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()

		for _, body := range []string{"first", "second"} {
			if err := n.Show(t.Context(), relay.Notification{Title: "Hamlet", Body: body, Tag: "t1"}); err != nil {
				t.Fatalf("Show()でエラーが発生: %v", err)
			}
		}

		if replaces := bus.calls[1].args[1]; replaces != uint32(1) {
			t.Errorf("replaces_id = %v, want 1", replaces)
		}
		if got := n.shown.count(); got != 1 {
			t.Errorf("記録されている通知の数 = %d, want 1", got)
		}
		notif, ok := n.shown.get(1)
		if !ok || notif.Body != "second" {
			t.Errorf("記録された通知 = %+v, %v", notif, ok)
		}
	})

	t.Run("タグのない通知は置き換えられないこと", func(t *testing.T) {
		t.Parallel()
		n, _ := newTestNotifier()

		for range 2 {
			if err := n.Show(t.Context(), relay.Notification{Title: relay.FallbackTitle}); err != nil {
				t.Fatalf("Show()でエラーが発生: %v", err)
			}
		}
		if got := n.shown.count(); got != 2 {
			t.Errorf("記録されている通知の数 = %d, want 2", got)
		}
	})

	t.Run("通知サーバーのエラーを返すこと", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()
		bus.err = errors.New("no server")

		if err := n.Show(t.Context(), relay.Notification{Title: "x"}); !errors.Is(err, bus.err) {
			t.Errorf("error = %v, want %v", err, bus.err)
		}
	})
}

// TestNotifier_Close は通知の消去を検証する。
func TestNotifier_Close(t *testing.T) {
	t.Parallel()

	t.Run("IDで消去できること", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()
		if err := n.Show(t.Context(), relay.Notification{Title: "x", Tag: "t1"}); err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		if err := n.Close(t.Context(), relay.Notification{ID: "1"}); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}
		last := bus.calls[len(bus.calls)-1]
		if last.method != iface+".CloseNotification" || last.args[0] != uint32(1) {
			t.Errorf("call = %+v", last)
		}
		if got := n.shown.count(); got != 0 {
			t.Errorf("記録されている通知の数 = %d, want 0", got)
		}
	})

	t.Run("タグで消去できること", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()
		if err := n.Show(t.Context(), relay.Notification{Title: "x", Tag: "t1"}); err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		if err := n.Close(t.Context(), relay.Notification{Tag: "t1"}); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}
		if len(bus.calls) != 2 {
			t.Errorf("呼び出し回数 = %d, want 2", len(bus.calls))
		}
	})

	t.Run("不明な通知は何もしないこと", func(t *testing.T) {
		t.Parallel()
		n, bus := newTestNotifier()

		if err := n.Close(t.Context(), relay.Notification{Title: "x"}); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}
		if len(bus.calls) != 0 {
			t.Errorf("呼び出し回数 = %d, want 0", len(bus.calls))
		}
	})
}

// TestNotifier_HandleSignal はシグナルの処理を検証する。
func TestNotifier_HandleSignal(t *testing.T) {
	t.Parallel()

	data := &push.NotificationData{APIKey: "abc123"}

	t.Run("クリックで記録された通知が渡されること", func(t *testing.T) {
		t.Parallel()
		n, _ := newTestNotifier()
		if err := n.Show(t.Context(), relay.Notification{Title: "x", Tag: "t1", Data: data}); err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		var clicked []relay.Notification
		onClick := func(_ context.Context, notif relay.Notification) {
			clicked = append(clicked, notif)
		}

		n.handleSignal(t.Context(), &dbus.Signal{
			Name: iface + ".ActionInvoked",
			Body: []interface{}{uint32(1), defaultAction},
		}, onClick)

		if len(clicked) != 1 {
			t.Fatalf("クリック回数 = %d, want 1", len(clicked))
		}
		if clicked[0].ID != "1" || clicked[0].Data != data {
			t.Errorf("clicked = %+v", clicked[0])
		}
	})

	t.Run("既定以外のアクションと不明なIDは無視されること", func(t *testing.T) {
		t.Parallel()
		n, _ := newTestNotifier()
		if err := n.Show(t.Context(), relay.Notification{Title: "x"}); err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		called := false
		onClick := func(context.Context, relay.Notification) { called = true }

		n.handleSignal(t.Context(), &dbus.Signal{Name: iface + ".ActionInvoked", Body: []interface{}{uint32(1), "dismiss"}}, onClick)
		n.handleSignal(t.Context(), &dbus.Signal{Name: iface + ".ActionInvoked", Body: []interface{}{uint32(99), defaultAction}}, onClick)
		n.handleSignal(t.Context(), &dbus.Signal{Name: iface + ".ActionInvoked", Body: []interface{}{"bad"}}, onClick)

		if called {
			t.Error("onClickが呼ばれた")
		}
	})

	t.Run("閉じられた通知は記録から消えること", func(t *testing.T) {
		t.Parallel()
		n, _ := newTestNotifier()
		if err := n.Show(t.Context(), relay.Notification{Title: "x", Tag: "t1"}); err != nil {
			t.Fatalf("Show()でエラーが発生: %v", err)
		}

		n.handleSignal(t.Context(), &dbus.Signal{
			Name: iface + ".NotificationClosed",
			Body: []interface{}{uint32(1), uint32(2)},
		}, nil)

		if got := n.shown.count(); got != 0 {
			t.Errorf("記録されている通知の数 = %d, want 0", got)
		}
		if got := n.shown.replaces("t1"); got != 0 {
			t.Errorf("replaces = %d, want 0", got)
		}
	})
}
