package services

import (
	"sync"
	"time"
)

// IDGenerator hands out transaction and label ids.
type IDGenerator interface {
	Next() int64
	// Observe records an id already in use so Next never returns it.
	Observe(id int64)
}

// ClockIDs derives ids from the millisecond clock, the way earlier versions
// of the app did, but never repeats: each id is greater than every id
// returned or observed before.
type ClockIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

func (g *ClockIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

func (g *ClockIDs) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
