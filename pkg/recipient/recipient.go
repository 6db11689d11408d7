// Package recipient はメッセージの宛先を比較・正規化する関数を提供する。
//
// ストリーム名とトピック名は大文字小文字を区別せずに比較する。
package recipient

import (
	"slices"
	"strings"
	"unicode/utf16"
)

// Type はメッセージの宛先の種類を表す。
type Type string

const (
	// TypePrivate は個人宛て（プライベート）メッセージを表す。
	TypePrivate Type = "private"
	// TypeStream はストリーム宛てメッセージを表す。
	TypeStream Type = "stream"
)

// Message は宛先比較に必要なメッセージの属性。
type Message struct {
	// Type は宛先の種類。
	Type Type `json:"type"`
	// Stream はストリーム名。TypeStreamの場合のみ有効。
	Stream string `json:"stream,omitempty"`
	// Subject はトピック名。TypeStreamの場合のみ有効。
	Subject string `json:"subject,omitempty"`
	// ReplyTo は返信先のメールアドレス一覧。TypePrivateの場合のみ有効。
	ReplyTo string `json:"reply_to,omitempty"`
	// SenderEmail は送信者のメールアドレス。
	SenderEmail string `json:"sender_email,omitempty"`
}

// SameStreamAndSubject はaとbのストリームとトピックが一致するかを返す。
func SameStreamAndSubject(a, b *Message) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.ToLower(a.Stream) == strings.ToLower(b.Stream) &&
		strings.ToLower(a.Subject) == strings.ToLower(b.Subject)
}

// SameRecipient はaとbの宛先が一致するかを返す。
// ストリームメッセージはストリームとトピックの両方が一致する必要がある。
func SameRecipient(a, b *Message) bool {
	if a == nil || b == nil || a.Type != b.Type {
		return false
	}

	switch a.Type {
	case TypePrivate:
		return a.ReplyTo == b.ReplyTo
	case TypeStream:
		return SameStreamAndSubject(a, b)
	}
	return false
}

// SameMajorRecipient はSameRecipientと同様だが、ストリームメッセージは
// トピックが異なっていても同じストリームであれば一致とみなす。
func SameMajorRecipient(a, b *Message) bool {
	if a == nil || b == nil || a.Type != b.Type {
		return false
	}

	switch a.Type {
	case TypePrivate:
		return a.ReplyTo == b.ReplyTo
	case TypeStream:
		return strings.ToLower(a.Stream) == strings.ToLower(b.Stream)
	}
	return false
}

// SameSender はaとbの送信者が一致するかを返す。
func SameSender(a, b *Message) bool {
	return a != nil && b != nil && a.SenderEmail == b.SenderEmail
}

// NormalizeRecipients はカンマ区切りの宛先一覧を正規形に変換する。
// 各要素の前後の空白を取り除き、空の要素を捨て、UTF-16のコード単位順に並べて
// カンマのみで連結する。重複は取り除かない。
func NormalizeRecipients(recipients string) string {
	parts := strings.Split(recipients, ",")
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	slices.SortFunc(normalized, compareUTF16)
	return strings.Join(normalized, ",")
}

// compareUTF16 はaとbをUTF-16のコード単位列として比較する。
// U+E000以上のBMPの文字は補助面の文字より後ろに並ぶ。
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
