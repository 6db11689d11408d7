// Package uri はブラウザのencodeURIComponent/decodeURIComponentと同じ規則で
// URIコンポーネントを符号化・復号する。
//
// 入力途中の文字列のように末尾が壊れている可能性のある値には
// RobustDecodeを使用する。
package uri
