package scheduler

import (
	"sync"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// ringCapacity is the per-device result ring size. spec.md §9's first Open
// Question flags the source's single shared 1000-slot ring as ambiguous
// under load (a busy device can evict a quiet device's history out from
// under the online heuristic); this implementation resolves it by giving
// each device its own bounded ring instead of sharing one.
const ringCapacity = 100

// resultRing is a fixed-capacity, newest-first ring buffer of DeviceResult,
// single-writer (the device's poll loop) and safe for concurrent readers.
type resultRing struct {
	mu    sync.RWMutex
	items []models.DeviceResult // oldest at index 0
}

func newResultRing() *resultRing {
	return &resultRing{items: make([]models.DeviceResult, 0, ringCapacity)}
}

// push appends a result, evicting the oldest entry once the ring is full.
func (r *resultRing) push(res models.DeviceResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) == ringCapacity {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = res

		return
	}

	r.items = append(r.items, res)
}

// snapshot returns up to limit results, newest first. limit<=0 returns
// everything.
func (r *resultRing) snapshot(limit int) []models.DeviceResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.items)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.DeviceResult, n)
	for i := 0; i < n; i++ {
		out[i] = r.items[len(r.items)-1-i]
	}

	return out
}

// last returns up to n results, newest first — used by device_status and
// the SSE feed's last-10 window.
func (r *resultRing) last(n int) []models.DeviceResult {
	return r.snapshot(n)
}

func (r *resultRing) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
