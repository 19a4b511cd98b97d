package compiler

import "github.com/chazu/partforge/pkg/kernel"

// History is the append-only record of solids built during one Build call,
// indexed by feature name.
type History struct {
	names  []string
	solids []kernel.Solid
	index  map[string]int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{index: make(map[string]int)}
}

// Put appends a solid for a feature. A repeated name points at the newest
// entry.
func (h *History) Put(name string, s kernel.Solid) {
	h.index[name] = len(h.solids)
	h.names = append(h.names, name)
	h.solids = append(h.solids, s)
}

// Get returns the newest solid recorded for name.
func (h *History) Get(name string) (kernel.Solid, bool) {
	i, ok := h.index[name]
	if !ok {
		return nil, false
	}
	return h.solids[i], true
}

// Names returns feature names in build order.
func (h *History) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.solids) }

// At returns the i-th entry in build order.
func (h *History) At(i int) (string, kernel.Solid) {
	return h.names[i], h.solids[i]
}
