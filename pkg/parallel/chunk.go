package parallel

// Range is the half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Chunks splits [0, n) into at most parts contiguous ranges of near-equal
// size. It returns nil for n <= 0.
func Chunks(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	// int64 keeps the ceiling division from overflowing
	size := int((int64(n) + int64(parts) - 1) / int64(parts))
	ranges := make([]Range, 0, parts)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}
