package push

import (
	"errors"

	"github.com/nao1215/pushrelay/pkg/narrow"
)

// ErrMissingAPIKey はピックアップAPIのレスポンスにapi_keyが含まれていないことを表す。
var ErrMissingAPIKey = errors.New("api_keyがペイロードに含まれていません")

// MessageNarrow はページにナローの切り替えを指示するメッセージ種別。
const MessageNarrow = "narrow"

// Payload はピックアップAPIが返す通知の内容。
type Payload struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Tag は通知の識別タグ。同じタグの通知は置き換えられる。
	Tag string `json:"tag"`
	// RawOperators は通知クリック時に表示するナロー。
	RawOperators []narrow.Operator `json:"raw_operators"`
	// APIKey はページ側でメッセージの送信元を検証するためのAPIキー。
	APIKey string `json:"api_key,omitempty"`
}

// Validate はペイロードが通知表示に必要な情報を持っているかを検証する。
// api_keyが欠けている場合だけでなく、空文字列の場合もErrMissingAPIKeyを返す。
func (p *Payload) Validate() error {
	if p.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Data は表示中の通知に添付する非表示データを返す。
func (p *Payload) Data() *NotificationData {
	return &NotificationData{
		RawOperators: p.RawOperators,
		APIKey:       p.APIKey,
	}
}

// NotificationData は通知に添付され、クリック時に取り出される非表示データ。
type NotificationData struct {
	// RawOperators は通知クリック時に表示するナロー。
	RawOperators []narrow.Operator `json:"raw_operators"`
	// APIKey はページ側での送信元検証に使うAPIキー。
	APIKey string `json:"api_key"`
}

// NarrowMessage は開いているページへ送るナロー切り替えメッセージ。
type NarrowMessage struct {
	// Message はメッセージ種別。常にMessageNarrow。
	Message string `json:"message"`
	// RawOperators は切り替え先のナロー。
	RawOperators []narrow.Operator `json:"raw_operators"`
	// APIKey はページ側での送信元検証に使うAPIキー。
	APIKey string `json:"api_key"`
}

// NewNarrowMessage は通知データからナローメッセージを生成する。
// dataがnilの場合は演算子もAPIキーも持たないメッセージになる。
func NewNarrowMessage(data *NotificationData) NarrowMessage {
	msg := NarrowMessage{Message: MessageNarrow}
	if data != nil {
		msg.RawOperators = data.RawOperators
		msg.APIKey = data.APIKey
	}
	return msg
}
