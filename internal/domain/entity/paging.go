package entity

// Paging bounds of analysis listings
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NormalizePage applies the listing bounds: a non-positive limit becomes
// DefaultListLimit, a larger one is capped at MaxListLimit and a negative
// offset becomes 0.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	return limit, max(offset, 0)
}
