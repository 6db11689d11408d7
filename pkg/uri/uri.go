package uri

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformed は不正なパーセントエンコーディングを表すエラー。
var ErrMalformed = errors.New("不正なURIエンコーディング")

const upperhex = "0123456789ABCDEF"

// shouldEscape はencodeURIComponentでエスケープされるバイトかどうかを返す。
func shouldEscape(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return false
	}
	return true
}

// EncodeComponent はsをencodeURIComponentと同じ規則でエンコードする。
// 非ASCII文字はUTF-8バイト列として大文字の%XXに変換される。
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !shouldEscape(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0F])
	}
	return b.String()
}

// DecodeComponent はdecodeURIComponentと同じ規則でsを復号する。
// 不正な%シーケンス、または復号結果が不正なUTF-8の場合はErrMalformedを返す。
func DecodeComponent(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			buf = append(buf, s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("%w: 位置%dのエスケープが途中で終わっています", ErrMalformed, i)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("%w: 位置%dのエスケープ %q が不正です", ErrMalformed, i, s[i:i+3])
		}
		buf = append(buf, hi<<4|lo)
		i += 2
	}

	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: 復号結果が不正なUTF-8です", ErrMalformed)
	}
	return string(buf), nil
}

// RobustDecode はsの復号を試み、失敗した場合は末尾から1文字ずつ取り除いて
// 復号できるまで再試行する。入力途中の値を扱うためのもので、
// 最終的に何も復号できなければ空文字列を返す。
func RobustDecode(s string) string {
	end := len(s)
	for end > 0 {
		decoded, err := DecodeComponent(s[:end])
		if err == nil {
			return decoded
		}
		_, size := utf8.DecodeLastRuneInString(s[:end])
		end -= size
	}
	return ""
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
