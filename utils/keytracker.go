package utils

// KeyTracker remembers which listing keys (room ids or URLs) were already
// collected. It is used by one scrape at a time and is not synchronized.
type KeyTracker struct {
	seen map[string]struct{}
}

// NewKeyTracker creates an empty tracker
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{seen: make(map[string]struct{})}
}

// Add returns true if the key is new. Empty keys are never new.
func (t *KeyTracker) Add(key string) bool {
	if key == "" {
		return false
	}
	if _, exists := t.seen[key]; exists {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Count returns the number of tracked keys
func (t *KeyTracker) Count() int {
	return len(t.seen)
}
