package pagehub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// focusMessage はページに前面への移動を求めるメッセージ。
var focusMessage = map[string]string{"message": "focus"}

// Page はWebSocketで接続中の1つのページ。relay.Clientを実装する。
type Page struct {
	// conn はページとのWebSocket接続。
	conn *websocket.Conn

	// writeMu は接続への書き込みを直列化する。
	writeMu sync.Mutex

	mu     sync.RWMutex
	url    string
	closed bool
}

// newPage は新しいPageを生成する。
func newPage(conn *websocket.Conn, url string) *Page {
	return &Page{conn: conn, url: url}
}

// URL はページが最後に通知したURLを返す。
func (p *Page) URL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.url
}

// setURL はページのURLを更新する。
func (p *Page) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// markClosed はページとの接続が閉じたことを記録する。
func (p *Page) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// PostMessage はメッセージをJSONとしてページに送る。
func (p *Page) PostMessage(ctx context.Context, msg any) error {
	return p.write(func() error {
		deadline := time.Now().Add(writeWait)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := p.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		return p.conn.WriteJSON(msg)
	})
}

// Focus はページに前面への移動を求める。
func (p *Page) Focus(ctx context.Context) error {
	return p.PostMessage(ctx, focusMessage)
}

// write は書き込みを直列化して実行する。接続が閉じている場合はErrPageClosedを返す。
func (p *Page) write(fn func() error) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPageClosed
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return fn()
}
