package pickup

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/pkg/logger"
	"github.com/nao1215/pushrelay/pkg/narrow"
	"github.com/nao1215/pushrelay/pkg/push"
	_ "modernc.org/sqlite"
)

// setupTestStore はインメモリSQLiteでStoreを構築する。
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// インメモリDBは接続ごとに別のデータベースになるため1接続に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store, err := NewStore(t.Context(), sqlDB, logger.Discard())
	if err != nil {
		t.Fatalf("ストアの初期化に失敗: %v", err)
	}
	return store
}

// TestStore_CreateUser はユーザー作成を検証する。
func TestStore_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("ハイフンを含まないAPIキーが発行されること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
		if err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}
		if user.APIKey == "" || strings.Contains(user.APIKey, "-") {
			t.Errorf("APIKey = %q, want non-empty key without '-'", user.APIKey)
		}
	})

	t.Run("同じメールアドレスは作成できないこと", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		if _, err := store.CreateUser(t.Context(), "hamlet@zulip.com"); err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}
		if _, err := store.CreateUser(t.Context(), "hamlet@zulip.com"); !errors.Is(err, ErrUserExists) {
			t.Errorf("error = %v, want ErrUserExists", err)
		}
	})

	t.Run("登録クエリに使えないメールアドレスは拒否されること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		for _, email := range []string{"", "hamlet", "king-hamlet@zulip.com", "a:b@zulip.com", "@zulip.com"} {
			if _, err := store.CreateUser(t.Context(), email); !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("CreateUser(%q) error = %v, want ErrInvalidEmail", email, err)
			}
		}
	})
}

// TestStore_Authenticate は資格情報の検証を検証する。
func TestStore_Authenticate(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)

	user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
	if err != nil {
		t.Fatalf("CreateUser()でエラーが発生: %v", err)
	}

	tests := []struct {
		name   string
		email  string
		apiKey string
		want   bool
	}{
		{name: "正しい組み合わせ", email: user.Email, apiKey: user.APIKey, want: true},
		{name: "APIキーが異なる", email: user.Email, apiKey: "wrong", want: false},
		{name: "存在しないユーザー", email: "iago@zulip.com", apiKey: user.APIKey, want: false},
	}

	for _, tt := range tests {
		got, err := store.Authenticate(t.Context(), tt.email, tt.apiKey)
		if err != nil {
			t.Fatalf("%s: Authenticate()でエラーが発生: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: Authenticate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestStore_EnqueueAndPop は通知キューの投入と取り出しを検証する。
func TestStore_EnqueueAndPop(t *testing.T) {
	t.Parallel()

	t.Run("投入した順に取り出されること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)
		user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
		if err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}

		for _, title := range []string{"first", "second"} {
			if _, err := store.Enqueue(t.Context(), user.Email, push.Payload{Title: title}); err != nil {
				t.Fatalf("Enqueue()でエラーが発生: %v", err)
			}
		}

		for _, want := range []string{"first", "second"} {
			got, err := store.Pop(t.Context(), user.Email)
			if err != nil {
				t.Fatalf("Pop()でエラーが発生: %v", err)
			}
			if got.Title != want {
				t.Errorf("Title = %q, want %q", got.Title, want)
			}
		}

		if _, err := store.Pop(t.Context(), user.Email); !errors.Is(err, ErrNoPendingNotification) {
			t.Errorf("error = %v, want ErrNoPendingNotification", err)
		}
	})

	t.Run("タグとAPIキーが補完されること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)
		user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
		if err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}

		stored, err := store.Enqueue(t.Context(), user.Email, push.Payload{
			Title:        "New message",
			RawOperators: []narrow.Operator{{Operator: "stream", Operand: "a.b"}},
		})
		if err != nil {
			t.Fatalf("Enqueue()でエラーが発生: %v", err)
		}
		if stored.Tag == "" {
			t.Error("Tagが生成されていない")
		}
		if stored.APIKey != user.APIKey {
			t.Errorf("APIKey = %q, want %q", stored.APIKey, user.APIKey)
		}

		got, err := store.Pop(t.Context(), user.Email)
		if err != nil {
			t.Fatalf("Pop()でエラーが発生: %v", err)
		}
		if got.Tag != stored.Tag || got.APIKey != user.APIKey {
			t.Errorf("got %+v, want %+v", got, stored)
		}
		if len(got.RawOperators) != 1 || got.RawOperators[0].Operand != "a.b" {
			t.Errorf("RawOperators = %+v", got.RawOperators)
		}
		if err := got.Validate(); err != nil {
			t.Errorf("Validate()でエラーが発生: %v", err)
		}
	})

	t.Run("存在しないユーザーへの投入はエラーになること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		if _, err := store.Enqueue(t.Context(), "nobody@zulip.com", push.Payload{Title: "x"}); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("error = %v, want ErrUserNotFound", err)
		}
		if _, err := store.Pop(t.Context(), "nobody@zulip.com"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("件数が取得できること", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)
		user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
		if err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}

		if n, err := store.Pending(t.Context(), user.Email); err != nil || n != 0 {
			t.Fatalf("Pending() = %d, %v, want 0, nil", n, err)
		}
		if _, err := store.Enqueue(t.Context(), user.Email, push.Payload{Title: "x"}); err != nil {
			t.Fatalf("Enqueue()でエラーが発生: %v", err)
		}
		if n, err := store.Pending(t.Context(), user.Email); err != nil || n != 1 {
			t.Errorf("Pending() = %d, %v, want 1, nil", n, err)
		}
	})
}

// openFileStore はファイル上のWALモードのSQLiteでStoreを構築する。
func openFileStore(t *testing.T, path string) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", "file:"+path+"?"+config.SQLiteOptions)
	if err != nil {
		t.Fatalf("DBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	store, err := NewStore(t.Context(), sqlDB, logger.Discard())
	if err != nil {
		t.Fatalf("ストアの初期化に失敗: %v", err)
	}
	return store
}

// popConcurrently はstoresに振り分けてn個のゴルーチンから同時にPopし、取り出したタイトルを返す。
func popConcurrently(t *testing.T, stores []*Store, email string, n int) []string {
	t.Helper()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		titles []string
		errs   []error
	)
	for i := range n {
		wg.Add(1)
		go func(store *Store) {
			defer wg.Done()
			p, err := store.Pop(t.Context(), email)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			titles = append(titles, p.Title)
		}(stores[i%len(stores)])
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("同時に取り出した%d件中%d件がエラー: %v", n, len(errs), errs[0])
	}
	return titles
}

// TestStore_ConcurrentPop は同時に取り出しても各ペイロードが1回ずつ返ることを検証する。
func TestStore_ConcurrentPop(t *testing.T) {
	t.Parallel()

	const n = 20

	enqueue := func(t *testing.T, store *Store) string {
		t.Helper()
		user, err := store.CreateUser(t.Context(), "hamlet@zulip.com")
		if err != nil {
			t.Fatalf("CreateUser()でエラーが発生: %v", err)
		}
		for i := range n {
			if _, err := store.Enqueue(t.Context(), user.Email, push.Payload{Title: fmt.Sprintf("message %d", i)}); err != nil {
				t.Fatalf("Enqueue()でエラーが発生: %v", err)
			}
		}
		return user.Email
	}

	assertAllPopped := func(t *testing.T, store *Store, email string, titles []string) {
		t.Helper()
		seen := make(map[string]bool, len(titles))
		for _, title := range titles {
			if seen[title] {
				t.Errorf("%q が2回取り出された", title)
			}
			seen[title] = true
		}
		if len(seen) != n {
			t.Errorf("取り出した件数 = %d, want %d", len(seen), n)
		}
		if remaining, err := store.Pending(t.Context(), email); err != nil || remaining != 0 {
			t.Errorf("Pending() = %d, %v, want 0, nil", remaining, err)
		}
	}

	t.Run("同じ接続プールからの同時取り出しが失敗しないこと", func(t *testing.T) {
		t.Parallel()
		store := openFileStore(t, filepath.Join(t.TempDir(), "pickup.db"))
		email := enqueue(t, store)

		titles := popConcurrently(t, []*Store{store}, email, n)
		assertAllPopped(t, store, email, titles)
	})

	t.Run("別々の接続プールからの同時取り出しが失敗しないこと", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "pickup.db")
		first := openFileStore(t, path)
		second := openFileStore(t, path)
		email := enqueue(t, first)

		titles := popConcurrently(t, []*Store{first, second}, email, n)
		assertAllPopped(t, first, email, titles)
	})
}
