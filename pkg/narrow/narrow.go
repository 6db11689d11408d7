package narrow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/pushrelay/pkg/uri"
)

// ErrNotNarrowHash はフラグメントがナロー形式でないことを表すエラー。
var ErrNotNarrowHash = errors.New("ナロー形式のフラグメントではありません")

// hashPrefix はナローを表すフラグメントの接頭辞。
const hashPrefix = "#narrow"

// Operator はナローを構成する1つの絞り込み条件。
type Operator struct {
	// Operator は演算子（例: "stream"）。
	Operator string `json:"operator"`
	// Operand は被演算子（例: "general"）。
	Operand string `json:"operand"`
	// Negated は条件を否定するかどうか。
	Negated bool `json:"negated,omitempty"`
}

// EncodeHashComponent はsをURIコンポーネントとしてエンコードした後、
// エスケープ記号の "%" を "." に置き換え、元の "." を "%2E" に置き換える。
// 結果に生の "%" が現れるのは "%2E" の場合のみである。
func EncodeHashComponent(s string) string {
	encoded := uri.EncodeComponent(s)

	var b strings.Builder
	b.Grow(len(encoded))
	for i := 0; i < len(encoded); i++ {
		switch encoded[i] {
		case '.':
			b.WriteString("%2E")
		case '%':
			b.WriteByte('.')
		default:
			b.WriteByte(encoded[i])
		}
	}
	return b.String()
}

// DecodeHashComponent はEncodeHashComponentの逆変換を行う。
// "." を "%" に戻してからURIコンポーネントとして復号する。
func DecodeHashComponent(s string) (string, error) {
	decoded, err := uri.DecodeComponent(strings.ReplaceAll(s, ".", "%"))
	if err != nil {
		return "", fmt.Errorf("フラグメント要素 %q の復号に失敗: %w", s, err)
	}
	return decoded, nil
}

// OperatorsToHash は演算子列をナローのURLフラグメントに変換する。
// 演算子が1つもない場合は "#" を返す。否定された演算子には "-" が前置される。
func OperatorsToHash(operators []Operator) string {
	if len(operators) == 0 {
		return "#"
	}

	var b strings.Builder
	b.WriteString(hashPrefix)
	for _, op := range operators {
		b.WriteByte('/')
		if op.Negated {
			b.WriteByte('-')
		}
		b.WriteString(EncodeHashComponent(op.Operator))
		b.WriteByte('/')
		b.WriteString(EncodeHashComponent(op.Operand))
	}
	return b.String()
}

// HashToOperators はOperatorsToHashで生成されたフラグメントを演算子列に戻す。
// "#" のみ、または空文字列の場合は空の演算子列を返す。
// 被演算子が欠けている末尾の演算子は空の被演算子として扱う。
func HashToOperators(hash string) ([]Operator, error) {
	if hash == "" || hash == "#" {
		return []Operator{}, nil
	}
	if hash != hashPrefix && !strings.HasPrefix(hash, hashPrefix+"/") {
		return nil, fmt.Errorf("%w: %q", ErrNotNarrowHash, hash)
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(hash, hashPrefix), "/")
	if rest == "" {
		return []Operator{}, nil
	}

	parts := strings.Split(rest, "/")
	operators := make([]Operator, 0, (len(parts)+1)/2)
	for i := 0; i < len(parts); i += 2 {
		rawOperator := parts[i]
		negated := strings.HasPrefix(rawOperator, "-")
		if negated {
			rawOperator = rawOperator[1:]
		}

		operator, err := DecodeHashComponent(rawOperator)
		if err != nil {
			return nil, err
		}

		var operand string
		if i+1 < len(parts) {
			operand, err = DecodeHashComponent(parts[i+1])
			if err != nil {
				return nil, err
			}
		}

		operators = append(operators, Operator{
			Operator: operator,
			Operand:  operand,
			Negated:  negated,
		})
	}
	return operators, nil
}
