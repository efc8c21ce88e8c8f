package clip

// RemoveLast is the sentinel index meaning "drop the newest reel entry".
const RemoveLast = -1

// Reel is an ordered, possibly-repeating sequence of clip snapshots. Entries
// are copies: a reel entry keeps its own timestamps even if the source clip
// is trimmed later. Not safe for concurrent use; the session serializes.
type Reel struct {
	entries []Clip
}

func (r *Reel) Len() int {
	return len(r.entries)
}

func (r *Reel) Entries() []Clip {
	out := make([]Clip, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Reel) At(i int) (Clip, bool) {
	if i < 0 || i >= len(r.entries) {
		return Clip{}, false
	}
	return r.entries[i], true
}

// Append snapshots a clip onto the reel. The only validation is a positive
// duration after defaulting.
func (r *Reel) Append(c Clip) {
	c = Sanitize(c, DefaultReelDuration)
	r.entries = append(r.entries, c)
}

// RemoveIndex removes the entry at i, or the last entry when i is
// RemoveLast. Out-of-range indices are a no-op, not an error. Reports
// whether an entry was removed.
func (r *Reel) RemoveIndex(i int) bool {
	if len(r.entries) == 0 {
		return false
	}
	if i == RemoveLast {
		i = len(r.entries) - 1
	}
	if i < 0 || i >= len(r.entries) {
		return false
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return true
}

func (r *Reel) Clear() {
	r.entries = nil
}
