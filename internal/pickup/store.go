package pickup

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	pickupdb "github.com/nao1215/pushrelay/internal/pickup/db"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/migration"
	"github.com/nao1215/pushrelay/pkg/narrow"
	"github.com/nao1215/pushrelay/pkg/push"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNoPendingNotification は未取得の通知ペイロードがないことを表す。
	ErrNoPendingNotification = errors.New("未取得の通知はありません")
	// ErrUserNotFound は指定されたユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("ユーザーが見つかりません")
	// ErrUserExists は同じメールアドレスのユーザーが既に存在することを表す。
	ErrUserExists = errors.New("ユーザーは既に存在します")
	// ErrInvalidEmail はメールアドレスがリレー登録に使えない形式であることを表す。
	ErrInvalidEmail = errors.New("メールアドレスが不正です")
)

// User はピックアップAPIを利用するユーザー。
type User struct {
	// Email はユーザーのメールアドレス。
	Email string
	// APIKey はBasic認証に使うAPIキー。
	APIKey string
}

// Store はユーザーと未取得の通知ペイロードを管理する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *pickupdb.Queries
	// queueMu は未取得キューの読み出しから書き戻しまでを直列化する。
	queueMu sync.Mutex
}

// NewStore はマイグレーションを適用したうえでStoreを生成する。
func NewStore(ctx context.Context, db *sql.DB, log *logger.Logger) (*Store, error) {
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", log); err != nil {
		return nil, fmt.Errorf("マイグレーションの実行に失敗: %w", err)
	}
	return &Store{db: db, queries: pickupdb.New(db)}, nil
}

// CreateUser は新しいAPIキーを発行してユーザーを作成する。
// "-" はリレー登録クエリの区切り文字のため、メールアドレスにもAPIキーにも含めない。
func (s *Store) CreateUser(ctx context.Context, email string) (User, error) {
	if !validEmail(email) {
		return User{}, ErrInvalidEmail
	}

	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	user := User{
		Email:  email,
		APIKey: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if err := s.queries.CreateUser(ctx, pickupdb.CreateUserParams{
		Email:  user.Email,
		ApiKey: user.APIKey,
	}); err != nil {
		return User{}, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return user, nil
}

// GetUser はメールアドレスからユーザーを取得する。
func (s *Store) GetUser(ctx context.Context, email string) (User, error) {
	row, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return User{Email: row.Email, APIKey: row.ApiKey}, nil
}

// Authenticate はメールアドレスとAPIキーの組が有効かを判定する。
// middleware.CredentialCheckerとして使用する。
func (s *Store) Authenticate(ctx context.Context, email, apiKey string) (bool, error) {
	user, err := s.GetUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(user.APIKey), []byte(apiKey)) == 1, nil
}

// Enqueue はユーザーの未取得キューの末尾に通知ペイロードを追加する。
// タグが空の場合はUUIDを、APIキーが空の場合はユーザーのAPIキーを設定する。
// 設定後のペイロードを返す。
func (s *Store) Enqueue(ctx context.Context, email string, payload push.Payload) (push.Payload, error) {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return push.Payload{}, err
	}
	if payload.Tag == "" {
		payload.Tag = uuid.NewString()
	}
	if payload.APIKey == "" {
		payload.APIKey = user.APIKey
	}
	if payload.RawOperators == nil {
		payload.RawOperators = []narrow.Operator{}
	}

	err = s.withPending(ctx, email, func(pending []push.Payload) ([]push.Payload, error) {
		return append(pending, payload), nil
	})
	if err != nil {
		return push.Payload{}, err
	}
	return payload, nil
}

// Pop はユーザーの未取得キューから最も古い通知ペイロードを取り出す。
// キューが空の場合はErrNoPendingNotificationを返す。
func (s *Store) Pop(ctx context.Context, email string) (push.Payload, error) {
	var popped push.Payload
	err := s.withPending(ctx, email, func(pending []push.Payload) ([]push.Payload, error) {
		if len(pending) == 0 {
			return nil, ErrNoPendingNotification
		}
		popped = pending[0]
		return pending[1:], nil
	})
	if err != nil {
		return push.Payload{}, err
	}
	return popped, nil
}

// Pending はユーザーの未取得キューの件数を返す。
func (s *Store) Pending(ctx context.Context, email string) (int, error) {
	raw, err := s.queries.GetWebNotificationPayload(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("通知ペイロードの取得に失敗: %w", err)
	}
	pending, err := decodePending(raw)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// withPending は未取得キューを読み出してupdateを適用し、結果をトランザクション内で書き戻す。
// updateがエラーを返した場合は何も書き込まない。
// 同時に呼ばれても1件のペイロードが2回取り出されることはない。
func (s *Store) withPending(ctx context.Context, email string, update func([]push.Payload) ([]push.Payload, error)) error {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	raw, err := q.GetWebNotificationPayload(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("通知ペイロードの取得に失敗: %w", err)
	}

	pending, err := decodePending(raw)
	if err != nil {
		return err
	}
	pending, err = update(pending)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []push.Payload{}
	}

	encoded, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("通知ペイロードのシリアライズに失敗: %w", err)
	}
	if _, err := q.UpdateWebNotificationPayload(ctx, pickupdb.UpdateWebNotificationPayloadParams{
		WebNotificationPayload: string(encoded),
		Email:                  email,
	}); err != nil {
		return fmt.Errorf("通知ペイロードの更新に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// decodePending はweb_notification_payload列のJSON配列を復元する。
func decodePending(raw string) ([]push.Payload, error) {
	var pending []push.Payload
	if raw == "" {
		return pending, nil
	}
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("通知ペイロードのデシリアライズに失敗: %w", err)
	}
	return pending, nil
}

// validEmail はメールアドレスがリレー登録クエリに埋め込める形式かを判定する。
func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	return !strings.ContainsAny(email, "-: \t\r\n")
}
