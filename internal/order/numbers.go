package order

import (
	"strconv"
	"sync"
	"time"
)

// NumberGenerator issues display numbers from the millisecond clock. Numbers
// are strictly increasing within a process; the store's unique index catches
// collisions between processes.
type NumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now}
}

func (g *NumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}
