// pkg/nand/tracker.go

package nand

// Tracker remembers the first page whose spare tag holds something other
// than an erased or zeroed pattern. Such tags may have carried bad block
// markers or other OOB metadata that the cooked image drops.
type Tracker struct {
	page int
}

func NewTracker() *Tracker {
	return &Tracker{page: -1}
}

// IsTainted reports whether spare is neither all 0xFF nor all 0x00.
func IsTainted(spare []byte) bool {
	if len(spare) == 0 {
		return false
	}
	first := spare[0]
	if first != 0xFF && first != 0x00 {
		return true
	}
	for _, b := range spare[1:] {
		if b != first {
			return true
		}
	}
	return false
}

// Observe inspects the spare tag of a chunk on page. It returns true only
// when this call recorded the page.
func (t *Tracker) Observe(page int, spare []byte) bool {
	if t.page >= 0 || !IsTainted(spare) {
		return false
	}
	t.page = page
	return true
}

// First returns the recorded page, if any.
func (t *Tracker) First() (int, bool) {
	return t.page, t.page >= 0
}
