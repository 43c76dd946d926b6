// Package dedup decides whether a notification was already shown, using two
// bounded histories of recently admitted notification and group IDs.
package dedup

// DefaultCapacity is the number of IDs each history remembers.
const DefaultCapacity = 20

// History is a bounded insertion-ordered set of positive IDs.
// When full, admitting a new ID evicts the oldest one.
type History struct {
	capacity int
	order    []int
	members  map[int]struct{}
}

// NewHistory returns a history holding the last capacity positive values of seed.
func NewHistory(capacity int, seed ...int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &History{
		capacity: capacity,
		order:    make([]int, 0, capacity),
		members:  make(map[int]struct{}, capacity),
	}
	for _, v := range seed {
		h.Admit(v)
	}
	return h
}

// Contains reports whether v is remembered.
func (h *History) Contains(v int) bool {
	_, ok := h.members[v]
	return ok
}

// Admit returns false when v is remembered. Otherwise it records v when v > 0
// and returns true, so non-positive values are always admitted.
func (h *History) Admit(v int) bool {
	if h.Contains(v) {
		return false
	}
	if v <= 0 {
		return true
	}
	if len(h.order) == h.capacity {
		delete(h.members, h.order[0])
		h.order = append(h.order[:0], h.order[1:]...)
	}
	h.order = append(h.order, v)
	h.members[v] = struct{}{}
	return true
}

// Values returns the remembered IDs, oldest first.
func (h *History) Values() []int {
	out := make([]int, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the number of remembered IDs.
func (h *History) Len() int {
	return len(h.order)
}
