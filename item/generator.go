package item

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Generator produces deterministic DataItems for tests, cycling through the
// three variant kinds so concurrency tests exercise every branch of a
// processor or cache without needing real storage.
//
// Unlike a channel-fed mock producer, Generator is pulled synchronously by
// key, which is what a loader function (Locator -> DataItem) needs to look
// like.
type Generator struct {
	mu      sync.Mutex
	calls   map[string]int
	nextSeq uint64
}

// NewGenerator returns a Generator ready for use.
func NewGenerator() *Generator {
	return &Generator{calls: make(map[string]int)}
}

// Load derives a DataItem from locator and a global call sequence number:
// the kind cycles Text, Opaque, Image across all calls, so the kind a
// locator gets depends on how many calls came before it. It is safe for
// concurrent use and records how many times each locator was requested
// (see CallCount and TotalCalls).
func (g *Generator) Load(locator string) (*DataItem, error) {
	seq := atomic.AddUint64(&g.nextSeq, 1)

	g.mu.Lock()
	g.calls[locator]++
	g.mu.Unlock()

	switch seq % 3 {
	case 0:
		width, height, channels := 2, 2, 1
		return NewImage(width, height, channels, []byte{
			byte(len(locator)), byte(seq), byte(seq >> 8), byte(seq >> 16),
		})
	case 1:
		return NewText(fmt.Sprintf("%s#%d", locator, seq)), nil
	default:
		return NewOpaque(struct {
			Locator string
			Seq     uint64
		}{locator, seq}), nil
	}
}

// CallCount returns how many times Load has been called for locator.
func (g *Generator) CallCount(locator string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[locator]
}

// TotalCalls returns the total number of Load invocations across all locators.
func (g *Generator) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}
