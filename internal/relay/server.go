package relay

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/middleware"
)

// Server はリレーデーモンのHTTPサーバー。
// プッシュイベントのWebhook、ページのWebSocket接続、通知クリックの受け口を提供する。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// relay はイベントを処理するリレー。
	relay *Relay
	// pages はページのWebSocket接続を受け付けるハンドラ。
	pages http.Handler
	// log は構造化ロガー。
	log *logger.Logger
}

// ServerConfig はリレーサーバーの設定。
type ServerConfig struct {
	// Port はサーバーのリッスンポート。
	Port string
	// PushRatePerSec はプッシュイベントの1秒あたりの上限。0以下は無制限。
	PushRatePerSec int
}

// NewServer は新しいリレーサーバーを生成する。
func NewServer(cfg ServerConfig, relay *Relay, pages http.Handler, log *logger.Logger) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(gin.Logger())

	s := &Server{
		router: router,
		port:   cfg.Port,
		relay:  relay,
		pages:  pages,
		log:    log.WithComponent("relay_server"),
	}
	s.setupRoutes(cfg.PushRatePerSec)

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes(pushRatePerSec int) {
	// プッシュイベントのWebhook
	s.router.POST("/push", middleware.RateLimit(pushRatePerSec), s.handlePush())
	// ページのWebSocket接続
	s.router.GET("/ws", gin.WrapH(s.pages))

	api := s.router.Group("/api/v1")
	{
		// 通知クリックの通知（デスクトップ通知を使わない場合）
		api.POST("/notifications/click", s.handleClick())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "relay"})
	})
}

// handlePush はプッシュイベントを受けて通知を表示するハンドラ。
// 通知の表示が終わるまでレスポンスを返さない。
func (s *Server) handlePush() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.relay.HandlePush(c.Request.Context()); err != nil {
			s.log.Error("プッシュイベントの処理に失敗しました", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知を表示できませんでした"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "shown"})
	}
}

// handleClick は通知のクリックを処理するハンドラ。
func (s *Server) handleClick() gin.HandlerFunc {
	return func(c *gin.Context) {
		var n Notification
		if err := c.ShouldBindJSON(&n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}

		if err := s.relay.HandleNotificationClick(c.Request.Context(), n); err != nil {
			s.log.Error("通知クリックの処理に失敗しました", slog.String("error", err.Error()))
			c.JSON(http.StatusBadGateway, gin.H{"error": "ページを表示できませんでした"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "handled"})
	}
}
