package engine

// SupportedFrontier is a Frontier plus reference counts on every timestamp
// currently "supported" (in this engine: each dirty timestamp an Index,
// Distinct, or Reduce node holds open via nodeState.dirtyHold). Its
// Frontier is always exactly the antichain of minima of the supported set.
type SupportedFrontier struct {
	support  map[string]int
	values   map[string]Timestamp
	frontier *Frontier
}

// NewSupportedFrontier builds an empty SupportedFrontier.
func NewSupportedFrontier() *SupportedFrontier {
	return &SupportedFrontier{
		support:  make(map[string]int),
		values:   make(map[string]Timestamp),
		frontier: NewFrontier(),
	}
}

// Frontier returns the live *Frontier derived from the current support set.
// Callers must not mutate it directly; use Update.
func (s *SupportedFrontier) Frontier() *Frontier { return s.frontier }

// Update changes the support count for t by diff, appending any resulting
// Frontier entries/exits to out. A support count is never allowed to go
// negative; that is a programmer error (a release without a matching
// hold) and panics.
//
// When a count reaches zero, t is dropped from the support set; if t was
// on the antichain, the support set is rescanned from scratch to admit any
// new minima it had been shadowing. When a new timestamp (support count
// was previously zero) is added, it is inserted via the same
// minimal-antichain-preserving rule used by Frontier.Advance/Retreat: a
// no-op if an element at or before it is already on the antichain.
func (s *SupportedFrontier) Update(t Timestamp, diff int, out *[]FrontierChange) {
	key := t.Key()
	cur := s.support[key]
	next := cur + diff
	switch {
	case next < 0:
		panic("dflow: supported frontier count went negative")
	case next == 0:
		delete(s.support, key)
		delete(s.values, key)
		if s.frontier.remove(t) {
			*out = append(*out, FrontierChange{Timestamp: t, Diff: -1})
			s.rescan(out)
		}
	default:
		s.support[key] = next
		if cur == 0 {
			s.values[key] = t
			*out = append(*out, s.frontier.insert(t)...)
		}
	}
}

// rescan recomputes the minimal antichain from scratch over every
// currently-supported timestamp, appending the diff between the old and
// new frontier to out. Called only after evicting an antichain element, to
// admit any previously-shadowed minima.
func (s *SupportedFrontier) rescan(out *[]FrontierChange) {
	fresh := NewFrontier()
	for _, t := range s.values {
		fresh.insert(t)
	}
	for _, e := range s.frontier.elements {
		if !fresh.Contains(e) {
			*out = append(*out, FrontierChange{Timestamp: e, Diff: -1})
		}
	}
	for _, e := range fresh.elements {
		if !s.frontier.Contains(e) {
			*out = append(*out, FrontierChange{Timestamp: e, Diff: +1})
		}
	}
	s.frontier = fresh
}
