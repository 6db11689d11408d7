package desktop

import (
	"strconv"
	"sync"

	"github.com/nao1215/pushrelay/internal/relay"
)

// tracker は表示中の通知を通知IDとタグで記録する。
type tracker struct {
	mu    sync.Mutex
	byID  map[uint32]relay.Notification
	byTag map[string]uint32
}

// newTracker は空のtrackerを生成する。
func newTracker() *tracker {
	return &tracker{
		byID:  make(map[uint32]relay.Notification),
		byTag: make(map[string]uint32),
	}
}

// replaces は同じタグで表示中の通知IDを返す。なければ0。
func (t *tracker) replaces(tag string) uint32 {
	if tag == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byTag[tag]
}

// add は表示した通知を記録する。通知にはIDが設定される。
func (t *tracker) add(id uint32, n relay.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n.ID = strconv.FormatUint(uint64(id), 10)
	if n.Tag != "" {
		if old, ok := t.byTag[n.Tag]; ok && old != id {
			delete(t.byID, old)
		}
		t.byTag[n.Tag] = id
	}
	t.byID[id] = n
}

// get は通知IDから記録された通知を返す。
func (t *tracker) get(id uint32) (relay.Notification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byID[id]
	return n, ok
}

// lookup は通知のIDまたはタグから通知IDを求める。
func (t *tracker) lookup(n relay.Notification) (uint32, bool) {
	if id, ok := parseID(n.ID); ok {
		return id, true
	}
	if n.Tag == "" {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byTag[n.Tag]
	return id, ok
}

// remove は通知の記録を削除する。
func (t *tracker) remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	if n.Tag != "" && t.byTag[n.Tag] == id {
		delete(t.byTag, n.Tag)
	}
}

// count は記録されている通知の数を返す。
func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
