package cdp

import (
	"sync/atomic"

	"github.com/chromedp/cdproto/target"
	"github.com/puzpuzpuz/xsync/v3"
)

// IDMap assigns stable integer tab ids to CDP target ids. Ids are never
// reused within a process; Reserve keeps them clear of ids persisted by
// earlier runs.
type IDMap struct {
	next     atomic.Int64
	byTarget *xsync.MapOf[target.ID, int]
	byTab    *xsync.MapOf[int, target.ID]
}

func NewIDMap() *IDMap {
	return &IDMap{
		byTarget: xsync.NewMapOf[target.ID, int](),
		byTab:    xsync.NewMapOf[int, target.ID](),
	}
}

// TabID returns the integer id for tid, assigning one on first sight.
func (m *IDMap) TabID(tid target.ID) int {
	id, loaded := m.byTarget.LoadOrCompute(tid, func() int {
		return int(m.next.Add(1))
	})
	if !loaded {
		m.byTab.Store(id, tid)
	}
	return id
}

// Reserve makes every id handed out from now on greater than maxID.
func (m *IDMap) Reserve(maxID int) {
	for {
		cur := m.next.Load()
		if cur >= int64(maxID) || m.next.CompareAndSwap(cur, int64(maxID)) {
			return
		}
	}
}

// Target returns the CDP target id for tabID.
func (m *IDMap) Target(tabID int) (target.ID, bool) {
	return m.byTab.Load(tabID)
}

// Forget drops the mapping for tid and returns the id it had.
func (m *IDMap) Forget(tid target.ID) (int, bool) {
	id, ok := m.byTarget.LoadAndDelete(tid)
	if ok {
		m.byTab.Delete(id)
	}
	return id, ok
}
