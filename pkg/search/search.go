// Package search はソート済みスライスに対する二分探索を提供する。
package search

import "cmp"

// LowerBound はソート済みのsにおいて、順序を崩さずにvalueを挿入できる最初の位置を返す。
// すなわち s[i] < value とならない最初のインデックスiを返す。
func LowerBound[E cmp.Ordered](s []E, value E) int {
	return LowerBoundRange(s, 0, len(s), value, cmp.Less[E])
}

// LowerBoundFunc はless関数で順序を定義するLowerBound。
// less(e, value) は要素eがvalueより前に並ぶ場合にtrueを返す必要がある。
func LowerBoundFunc[E, V any](s []E, value V, less func(E, V) bool) int {
	return LowerBoundRange(s, 0, len(s), value, less)
}

// LowerBoundRange はsの半開区間[first, last)の中で !less(s[i], value) となる最初のインデックスを返す。
// 該当する要素がない場合はlastを返す。区間はsの範囲内でなければならない。
func LowerBoundRange[E, V any](s []E, first, last int, value V, less func(E, V) bool) int {
	length := last - first
	for length > 0 {
		step := length / 2
		middle := first + step
		if less(s[middle], value) {
			first = middle + 1
			length -= step + 1
		} else {
			length = step
		}
	}
	return first
}
