package tui

import (
	"sync"

	"github.com/csheth/recipescout/internal/scroll"
)

// span is the line range [start, end) an item occupies in the rendered list.
type span struct {
	start, end int
}

// viewportObserver turns the viewport's visible line window into sentinel
// visibility events. Like a browser intersection observer it reports once
// after Observe and then whenever the sentinel crosses the threshold.
type viewportObserver struct {
	mu        sync.Mutex
	id        uint64
	sentinel  scroll.Sentinel
	threshold float64
	fn        func(scroll.Visibility)
	reported  bool
	above     bool
}

var _ scroll.ViewportObserver = (*viewportObserver)(nil)

func (o *viewportObserver) Observe(s scroll.Sentinel, threshold float64, fn func(scroll.Visibility)) func() {
	o.mu.Lock()
	o.id++
	id := o.id
	o.sentinel, o.threshold, o.fn = s, threshold, fn
	o.reported, o.above = false, false
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.id == id {
			o.fn = nil
		}
	}
}

// report computes the sentinel's visible ratio for a viewport showing lines
// [top, top+height) and notifies the observer when its state changes.
func (o *viewportObserver) report(spans []span, top, height int) {
	o.mu.Lock()
	fn := o.fn
	s := o.sentinel
	if fn == nil || s.Index < 0 || s.Index >= len(spans) {
		o.mu.Unlock()
		return
	}
	ratio := visibleRatio(spans[s.Index], top, height)
	above := ratio > 0 && ratio >= o.threshold
	if o.reported && above == o.above {
		o.mu.Unlock()
		return
	}
	o.reported, o.above = true, above
	o.mu.Unlock()

	fn(scroll.Visibility{Sentinel: s, Intersecting: ratio > 0, Ratio: ratio})
}

func visibleRatio(sp span, top, height int) float64 {
	total := sp.end - sp.start
	if total <= 0 || height <= 0 {
		return 0
	}
	lo := max(sp.start, top)
	hi := min(sp.end, top+height)
	if hi <= lo {
		return 0
	}
	return float64(hi-lo) / float64(total)
}
