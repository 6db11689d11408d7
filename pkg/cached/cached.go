// Package cached は計算コストの高い値を初回アクセス時に計算して保持する仕組みを提供する。
package cached

import "sync"

// Value は初回のGetで計算され、Resetされるまで保持される値。
// 複数のゴルーチンから同時に使用できる。
type Value[T any] struct {
	mu sync.Mutex
	// compute は値を計算する関数。
	compute func() T
	// value は計算済みの値。
	value T
	// valid はvalueが計算済みかどうか。
	valid bool
}

// New はcomputeで値を計算するValueを生成する。値はまだ計算されない。
func New[T any](compute func() T) *Value[T] {
	return &Value[T]{compute: compute}
}

// Get は保持している値を返す。未計算の場合は計算してから返す。
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.valid {
		v.value = v.compute()
		v.valid = true
	}
	return v.value
}

// Reset は保持している値を破棄し、次回のGetで再計算させる。
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.value = zero
	v.valid = false
}
