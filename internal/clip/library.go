package clip

// Library is the session-scoped ordered collection of clips. It is not safe
// for concurrent use; the owning session serializes access.
type Library struct {
	clips []Clip
}

func (l *Library) Len() int {
	return len(l.clips)
}

// List returns a copy of the library in order.
func (l *Library) List() []Clip {
	out := make([]Clip, len(l.clips))
	copy(out, l.clips)
	return out
}

func (l *Library) Get(id string) (Clip, bool) {
	for _, c := range l.clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}

// Prepend puts a clip at the front of the library, the position a fresh
// search result takes.
func (l *Library) Prepend(c Clip) {
	l.clips = append([]Clip{c}, l.clips...)
}

// Append adds a clip at the end unless a clip with the same ID already
// exists. Reports whether the clip was added.
func (l *Library) Append(c Clip) bool {
	for _, existing := range l.clips {
		if existing.ID == c.ID {
			return false
		}
	}
	l.clips = append(l.clips, c)
	return true
}

// Replace overwrites the clip with the same ID in place. Reports whether a
// clip was found.
func (l *Library) Replace(c Clip) bool {
	for i, existing := range l.clips {
		if existing.ID == c.ID {
			l.clips[i] = c
			return true
		}
	}
	return false
}

func (l *Library) Remove(id string) bool {
	for i, existing := range l.clips {
		if existing.ID == id {
			l.clips = append(l.clips[:i], l.clips[i+1:]...)
			return true
		}
	}
	return false
}

// SetAll replaces the library contents with the given clips, applying
// near-duplicate merging. Used when an analysis result arrives.
func (l *Library) SetAll(clips []Clip) {
	l.clips = Dedupe(clips)
}

// At returns the clip containing t on the source timeline, honoring the
// half-second grace past the clip end that export rendering allows.
func (l *Library) At(t float64) (Clip, bool) {
	for _, c := range l.clips {
		if t >= c.StartTime && t <= c.EndTime+0.5 {
			return c, true
		}
	}
	return Clip{}, false
}
