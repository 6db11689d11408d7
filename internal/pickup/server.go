package pickup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/middleware"
	"github.com/nao1215/pushrelay/pkg/narrow"
	"github.com/nao1215/pushrelay/pkg/push"
	_ "modernc.org/sqlite"
)

// Server はピックアップサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はユーザーと未取得通知の永続化層。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
	// hostname はリレー登録クエリに含めるホスト名。
	hostname string
	// jwtSecret は内部APIのトークン検証用の秘密鍵。
	jwtSecret string
	// log は構造化ロガー。
	log *logger.Logger
}

// NewServer は新しいピックアップサーバーを生成する。
// SQLiteデータベースへの接続とマイグレーションを行う。
func NewServer(ctx context.Context, cfg config.Pickup, log *logger.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s, err := newServer(ctx, sqlDB, cfg, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// newServer は接続済みのデータベースからサーバーを組み立てる。
func newServer(ctx context.Context, sqlDB *sql.DB, cfg config.Pickup, log *logger.Logger) (*Server, error) {
	store, err := NewStore(ctx, sqlDB, log.WithComponent("migration"))
	if err != nil {
		return nil, fmt.Errorf("ストアの初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:    router,
		port:      cfg.Port,
		store:     store,
		db:        sqlDB,
		hostname:  cfg.Hostname,
		jwtSecret: cfg.JWTSecret,
		log:       log.WithComponent("pickup"),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		// ブラウザやリレーから呼び出されるAPI
		me := api.Group("/users/me")
		me.Use(middleware.BasicAuth(s.store.Authenticate))
		{
			// 未取得の通知を1件取り出す
			me.POST("/pickup_web_notification", s.handlePickup())
			// リレー登録クエリを取得する
			me.GET("/relay_registration", s.handleRelayRegistration())
		}

		// 内部API（バックエンドから呼び出される）
		internal := api.Group("/internal")
		internal.Use(middleware.ServiceAuth(s.jwtSecret))
		{
			internal.POST("/users", s.handleCreateUser())
			internal.POST("/web_notifications", s.handleEnqueue())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pickup"})
	})
}

// handlePickup は認証済みユーザーの最も古い未取得通知を返すハンドラ。
func (s *Server) handlePickup() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := middleware.GetEmail(c)

		payload, err := s.store.Pop(c.Request.Context(), email)
		if errors.Is(err, ErrNoPendingNotification) {
			c.JSON(http.StatusNotFound, gin.H{"error": "未取得の通知はありません"})
			return
		}
		if err != nil {
			s.log.Error("通知の取り出しに失敗しました",
				slog.String("email", email),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, payload)
	}
}

// handleRelayRegistration は認証済みユーザーのリレー登録クエリを返すハンドラ。
func (s *Server) handleRelayRegistration() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.store.GetUser(c.Request.Context(), middleware.GetEmail(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの取得に失敗しました"})
			return
		}

		reg := relay.Registration{
			Credentials: relay.Credentials{Email: user.Email, APIKey: user.APIKey},
			Hostname:    s.hostname,
		}
		c.JSON(http.StatusOK, gin.H{
			"registration": reg.Query(),
			"hostname":     s.hostname,
		})
	}
}

// createUserRequest はユーザー作成リクエストのJSON構造。
type createUserRequest struct {
	// Email は作成するユーザーのメールアドレス。
	Email string `json:"email" binding:"required"`
}

// createUserResponse はユーザー作成レスポンスのJSON構造。
type createUserResponse struct {
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// APIKey は発行されたAPIキー。
	APIKey string `json:"api_key"`
}

// handleCreateUser はAPIキーを発行してユーザーを作成するハンドラ（内部API）。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}

		user, err := s.store.CreateUser(c.Request.Context(), req.Email)
		switch {
		case errors.Is(err, ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "メールアドレスが不正です"})
			return
		case errors.Is(err, ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "ユーザーは既に存在します"})
			return
		case err != nil:
			s.log.Error("ユーザーの作成に失敗しました", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの作成に失敗しました"})
			return
		}

		s.log.Info("ユーザーを作成しました",
			slog.String("email", user.Email),
			slog.String("caller", middleware.GetService(c)))

		c.JSON(http.StatusCreated, createUserResponse{
			Email:  user.Email,
			APIKey: user.APIKey,
		})
	}
}

// enqueueRequest は通知投入リクエストのJSON構造。
type enqueueRequest struct {
	// Email は通知先ユーザーのメールアドレス。
	Email string `json:"email" binding:"required"`
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Tag は通知の識別タグ。空の場合はUUIDを生成する。
	Tag string `json:"tag"`
	// RawOperators は通知クリック時に表示するナロー。
	RawOperators []narrow.Operator `json:"raw_operators"`
}

// handleEnqueue はユーザーの未取得キューに通知を追加するハンドラ（内部API）。
func (s *Server) handleEnqueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}

		payload, err := s.store.Enqueue(c.Request.Context(), req.Email, push.Payload{
			Title:        req.Title,
			Body:         req.Body,
			Tag:          req.Tag,
			RawOperators: req.RawOperators,
		})
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			s.log.Error("通知の投入に失敗しました",
				slog.String("email", req.Email),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の投入に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"tag": payload.Tag})
	}
}
