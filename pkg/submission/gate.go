package submission

import (
	"sync"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Gate is the "submitting" lock: at most one submission per key at a time.
type Gate struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{busy: make(map[string]struct{})}
}

// Acquire takes the lock for key. The returned release func is idempotent
// and must be deferred by the caller. A held key yields domain.ErrSubmitInProgress.
func (g *Gate) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.busy[key]; held {
		return nil, domain.ErrSubmitInProgress
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently submitting.
func (g *Gate) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.busy[key]
	return held
}
