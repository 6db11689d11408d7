package relay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRegistration はリレー登録クエリの形式が不正であることを表す。
var ErrInvalidRegistration = errors.New("リレー登録クエリの形式が不正です")

// Credentials はピックアップAPIの認証に使う資格情報。
type Credentials struct {
	// Email はユーザーのメールアドレス。
	Email string
	// APIKey はユーザーのAPIキー。
	APIKey string
}

// AuthorizationHeader はBasic認証のAuthorizationヘッダー値を返す。
func (c Credentials) AuthorizationHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Email+":"+c.APIKey))
}

// Registration はリレー起動時に与えられる登録情報。
// 起動後は変更されない。
type Registration struct {
	Credentials
	// Hostname はクリック時に前面に出すページを判定するホスト名。
	Hostname string
}

// ParseRegistration は "?email:api_key-hostname" 形式の登録クエリを解析する。
// 先頭の "?" は省略できる。最初の "-" で資格情報とホスト名に分割するため、
// ホスト名には "-" を含められるが、メールアドレスとAPIキーには含められない。
func ParseRegistration(query string) (Registration, error) {
	query = strings.TrimPrefix(query, "?")

	creds, hostname, found := strings.Cut(query, "-")
	if !found || creds == "" || hostname == "" {
		return Registration{}, fmt.Errorf("%w: %q", ErrInvalidRegistration, query)
	}

	email, apiKey, found := strings.Cut(creds, ":")
	if !found || email == "" || apiKey == "" {
		return Registration{}, fmt.Errorf("%w: 資格情報は email:api_key 形式で指定してください", ErrInvalidRegistration)
	}

	return Registration{
		Credentials: Credentials{Email: email, APIKey: apiKey},
		Hostname:    hostname,
	}, nil
}

// Query は登録情報を "?email:api_key-hostname" 形式の登録クエリに変換する。
func (r Registration) Query() string {
	return "?" + r.Email + ":" + r.APIKey + "-" + r.Hostname
}
