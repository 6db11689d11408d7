package pagehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/logger"
)

const (
	// pingInterval は接続維持のためのPingの送信間隔。
	pingInterval = 30 * time.Second
	// writeWait は1回の書き込みの待ち時間の上限。
	writeWait = 10 * time.Second
)

// ErrPageClosed はページとの接続が既に閉じていることを表す。
var ErrPageClosed = errors.New("ページとの接続は閉じています")

// Opener はURLを新しいページとして開く。
type Opener func(ctx context.Context, url string) error

// XDGOpen はxdg-openでURLを既定のブラウザで開くOpener。
func XDGOpen(ctx context.Context, url string) error {
	if err := exec.CommandContext(ctx, "xdg-open", url).Run(); err != nil {
		return fmt.Errorf("xdg-openの実行に失敗: %w", err)
	}
	return nil
}

// Hub は接続中のページの集合。relay.Clientsを実装する。
type Hub struct {
	// baseURL は新しいページを開くときの基準URL。
	baseURL *url.URL
	// open は新しいページを開く関数。
	open Opener
	// upgrader はHTTP接続をWebSocketに切り替える。
	upgrader websocket.Upgrader
	// log は構造化ロガー。
	log *logger.Logger

	mu    sync.RWMutex
	pages []*Page
}

// NewHub は新しいHubを生成する。
// baseURLはOpenWindowに渡されたパスを解決する基準になる。openがnilの場合はXDGOpenを使う。
func NewHub(baseURL string, open Opener, log *logger.Logger) (*Hub, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("基準URLの解析に失敗: %w", err)
	}
	if open == nil {
		open = XDGOpen
	}

	return &Hub{
		baseURL: base,
		open:    open,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		log: log.WithComponent("pagehub"),
	}, nil
}

// MatchAll は接続中のページを接続順に返す。
func (h *Hub) MatchAll(context.Context) ([]relay.Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]relay.Client, 0, len(h.pages))
	for _, p := range h.pages {
		clients = append(clients, p)
	}
	return clients, nil
}

// OpenWindow はパスを基準URLで解決して新しいページを開く。
func (h *Hub) OpenWindow(ctx context.Context, path string) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("パスの解析に失敗: %w", err)
	}
	target := h.baseURL.ResolveReference(ref).String()

	h.log.Info("新しいページを開きます", slog.String("url", target))
	return h.open(ctx, target)
}

// Len は接続中のページ数を返す。
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pages)
}

// register はページを接続順の末尾に追加する。
func (h *Hub) register(p *Page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages = append(h.pages, p)

	h.log.Debug("ページが接続しました",
		slog.String("url", p.URL()),
		slog.Int("pages", len(h.pages)))
}

// unregister はページを集合から取り除く。
func (h *Hub) unregister(p *Page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, q := range h.pages {
		if q == p {
			h.pages = append(h.pages[:i], h.pages[i+1:]...)
			break
		}
	}

	h.log.Debug("ページが切断しました",
		slog.String("url", p.URL()),
		slog.Int("pages", len(h.pages)))
}

// ServeHTTP はページからのWebSocket接続を受け付け、切断されるまで保持する。
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		http.Error(w, "urlクエリパラメータが必要です", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocketへの切り替えに失敗しました", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	page := newPage(conn, pageURL)
	h.register(page)
	defer h.unregister(page)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(page)
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := page.write(func() error {
				return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}); err != nil {
				h.log.Warn("Pingの送信に失敗しました", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// pageMessage はページから届くメッセージ。
type pageMessage struct {
	// Message はメッセージ種別。
	Message string `json:"message"`
	// URL はページの新しいURL。
	URL string `json:"url"`
}

// readLoop はページからのメッセージを切断されるまで読み続ける。
func (h *Hub) readLoop(p *Page) {
	defer p.markClosed()
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg pageMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Warn("ページからのメッセージを解析できません", slog.String("error", err.Error()))
			continue
		}
		if msg.Message == "location" && msg.URL != "" {
			p.setURL(msg.URL)
		}
	}
}
