package twinmap

import (
	"sync"

	"github.com/agentstation/twinmap/pkg/reconciler"
)

// EntryHook is called with one classified partner after a comparison.
type EntryHook func(city string, entry reconciler.Entry)

// Hooks registers callbacks run after every successful comparison.
type Hooks interface {
	// OnMatched is called for partners both sources list.
	OnMatched(fn EntryHook)
	// OnGraphOnly is called for partners missing from the article.
	OnGraphOnly(fn EntryHook)
	// OnArticleOnly is called for partners missing from the graph.
	OnArticleOnly(fn EntryHook)
}

// hooks manages comparison callbacks.
type hooks struct {
	mu            sync.RWMutex
	onMatched     []EntryHook
	onGraphOnly   []EntryHook
	onArticleOnly []EntryHook
}

func newHooks() *hooks {
	return &hooks{}
}

func (h *hooks) OnMatched(fn EntryHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMatched = append(h.onMatched, fn)
}

func (h *hooks) OnGraphOnly(fn EntryHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onGraphOnly = append(h.onGraphOnly, fn)
}

func (h *hooks) OnArticleOnly(fn EntryHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onArticleOnly = append(h.onArticleOnly, fn)
}

// triggerResult calls the hooks registered for each entry's status, in key order.
func (h *hooks) triggerResult(result *reconciler.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	city := result.City.String()
	for _, entry := range result.Entries {
		var fns []EntryHook
		switch entry.Status {
		case reconciler.StatusMatched:
			fns = h.onMatched
		case reconciler.StatusGraphOnly:
			fns = h.onGraphOnly
		case reconciler.StatusArticleOnly:
			fns = h.onArticleOnly
		}
		for _, fn := range fns {
			fn(city, entry)
		}
	}
}

// OnMatched registers fn for partners both sources list.
func (c *client) OnMatched(fn EntryHook) { c.hooks.OnMatched(fn) }

// OnGraphOnly registers fn for partners missing from the article.
func (c *client) OnGraphOnly(fn EntryHook) { c.hooks.OnGraphOnly(fn) }

// OnArticleOnly registers fn for partners missing from the graph.
func (c *client) OnArticleOnly(fn EntryHook) { c.hooks.OnArticleOnly(fn) }
