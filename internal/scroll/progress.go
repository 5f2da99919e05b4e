package scroll

import "math"

// Position is the reader's place in the result list.
type Position struct {
	Percent float64
	Card    int
}

// Progress maps a scroll offset to a percentage of the scrollable range and
// a 1-based card number among count cards.
func Progress(offset, contentHeight, viewHeight, count int) Position {
	if count <= 0 {
		return Position{}
	}
	scrollable := contentHeight - viewHeight
	if scrollable <= 0 {
		return Position{Percent: 100, Card: count}
	}
	pct := float64(offset) / float64(scrollable) * 100
	pct = math.Max(0, math.Min(pct, 100))

	maxIndex := count - 1
	idx := int(math.Round(pct / 100 * float64(maxIndex)))
	if idx > maxIndex {
		idx = maxIndex
	}
	return Position{Percent: pct, Card: idx + 1}
}
