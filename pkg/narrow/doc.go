// Package narrow はナロー（メッセージの絞り込み条件）とURLフラグメントの相互変換を提供する。
//
// ナローは演算子と被演算子の組の列で表され、URLでは
// "#narrow/<演算子>/<値>/..." 形式のフラグメントとして表現される。
// フラグメント内の各要素は、"." 区切りの旧形式パーサーとの曖昧さを避けるため、
// "%" を "." に置き換える独自のエスケープ規則でエンコードされる。
package narrow
