package router

import (
	"log"
	"sync"
)

// Navigator tracks the current screen. A hard navigation runs every reset
// hook so no in-memory state survives it; Replace only moves.
type Navigator struct {
	mu      sync.Mutex
	current string
	history []string
	resets  []func()
}

// NewNavigator starts at path.
func NewNavigator(path string) *Navigator {
	return &Navigator{current: path}
}

// OnHard registers fn to run on every hard navigation.
func (n *Navigator) OnHard(fn func()) {
	n.mu.Lock()
	n.resets = append(n.resets, fn)
	n.mu.Unlock()
}

// Hard discards in-memory state and moves to path.
func (n *Navigator) Hard(path string) {
	n.mu.Lock()
	resets := append([]func(){}, n.resets...)
	n.history = append(n.history, path)
	n.current = path
	n.mu.Unlock()

	log.Printf("🔁 Hard navigation to %s", path)
	for _, fn := range resets {
		fn()
	}
}

// Replace moves to path keeping in-memory state.
func (n *Navigator) Replace(path string) {
	n.mu.Lock()
	n.history = append(n.history, path)
	n.current = path
	n.mu.Unlock()
}

// Current returns the current path.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns every path navigated to, oldest first.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
