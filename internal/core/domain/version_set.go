package domain

import "strings"

// VersionSet is an immutable set of allowed versions, represented as a
// sorted list of disjoint, non-adjacent intervals. It is the algebra the
// resolver works in: specifiers compile to sets, and incompatibility terms
// intersect, union and complement them.
type VersionSet struct {
	intervals []interval
}

// interval is a contiguous version range. A nil bound means unbounded on
// that side.
type interval struct {
	low     *Version
	lowInc  bool
	high    *Version
	highInc bool
}

// FullSet returns the set containing every version.
func FullSet() VersionSet {
	return VersionSet{intervals: []interval{{}}}
}

// EmptySet returns the set containing no versions.
func EmptySet() VersionSet {
	return VersionSet{}
}

// ExactVersion returns the set containing only v.
func ExactVersion(v Version) VersionSet {
	c := v
	return VersionSet{intervals: []interval{{low: &c, lowInc: true, high: &c, highInc: true}}}
}

// VersionRange returns the set of versions between low and high. Either
// bound may be nil for an unbounded side.
func VersionRange(low *Version, lowInc bool, high *Version, highInc bool) VersionSet {
	iv := interval{low: low, lowInc: lowInc, high: high, highInc: highInc}
	if iv.empty() {
		return EmptySet()
	}
	return VersionSet{intervals: []interval{iv}}
}

func (iv interval) empty() bool {
	if iv.low == nil || iv.high == nil {
		return false
	}
	c := iv.low.Compare(*iv.high)
	if c > 0 {
		return true
	}
	if c == 0 {
		return !(iv.lowInc && iv.highInc)
	}
	return false
}

func (iv interval) contains(v Version) bool {
	if iv.low != nil {
		c := v.Compare(*iv.low)
		if c < 0 || (c == 0 && !iv.lowInc) {
			return false
		}
	}
	if iv.high != nil {
		c := v.Compare(*iv.high)
		if c > 0 || (c == 0 && !iv.highInc) {
			return false
		}
	}
	return true
}

// Contains reports whether v is in the set.
func (s VersionSet) Contains(v Version) bool {
	for _, iv := range s.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Empty reports whether the set contains no versions.
func (s VersionSet) Empty() bool {
	return len(s.intervals) == 0
}

// Full reports whether the set contains every version.
func (s VersionSet) Full() bool {
	return len(s.intervals) == 1 && s.intervals[0].low == nil && s.intervals[0].high == nil
}

// Intersect returns the set of versions in both s and other.
func (s VersionSet) Intersect(other VersionSet) VersionSet {
	var out []interval
	for _, a := range s.intervals {
		for _, b := range other.intervals {
			if iv, ok := intersectIntervals(a, b); ok {
				out = append(out, iv)
			}
		}
	}
	return VersionSet{intervals: out}
}

func intersectIntervals(a, b interval) (interval, bool) {
	out := a
	// Tighter lower bound wins.
	if lowLess(out.low, out.lowInc, b.low, b.lowInc) {
		out.low, out.lowInc = b.low, b.lowInc
	}
	// Tighter upper bound wins.
	if highGreater(out.high, out.highInc, b.high, b.highInc) {
		out.high, out.highInc = b.high, b.highInc
	}
	if out.empty() {
		return interval{}, false
	}
	return out, true
}

// lowLess reports whether lower bound (a, aInc) admits more versions than (b, bInc).
func lowLess(a *Version, aInc bool, b *Version, bInc bool) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return true
	}
	c := a.Compare(*b)
	if c != 0 {
		return c < 0
	}
	return aInc && !bInc
}

// highGreater reports whether upper bound (a, aInc) admits more versions than (b, bInc).
func highGreater(a *Version, aInc bool, b *Version, bInc bool) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return true
	}
	c := a.Compare(*b)
	if c != 0 {
		return c > 0
	}
	return aInc && !bInc
}

// Union returns the set of versions in s or other.
func (s VersionSet) Union(other VersionSet) VersionSet {
	// The complement representation keeps interval merging in one place.
	return s.Complement().Intersect(other.Complement()).Complement()
}

// Complement returns the set of versions not in s.
func (s VersionSet) Complement() VersionSet {
	if len(s.intervals) == 0 {
		return FullSet()
	}
	var out []interval
	var cursorVersion *Version
	cursorInc := false // whether the cursor version itself is still available
	first := s.intervals[0]
	if first.low != nil {
		out = append(out, interval{high: first.low, highInc: !first.lowInc})
	}
	cursorVersion, cursorInc = first.high, !first.highInc
	for _, iv := range s.intervals[1:] {
		out = append(out, interval{low: cursorVersion, lowInc: cursorInc, high: iv.low, highInc: !iv.lowInc})
		cursorVersion, cursorInc = iv.high, !iv.highInc
	}
	if cursorVersion != nil {
		out = append(out, interval{low: cursorVersion, lowInc: cursorInc})
	}
	return VersionSet{intervals: out}
}

// Equal reports whether both sets admit exactly the same versions.
func (s VersionSet) Equal(other VersionSet) bool {
	if len(s.intervals) != len(other.intervals) {
		return false
	}
	for i, a := range s.intervals {
		b := other.intervals[i]
		if !boundEqual(a.low, b.low) || !boundEqual(a.high, b.high) {
			return false
		}
		if a.low != nil && a.lowInc != b.lowInc {
			return false
		}
		if a.high != nil && a.highInc != b.highInc {
			return false
		}
	}
	return true
}

func boundEqual(a, b *Version) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Compare(*b) == 0
}

// String renders the set for error reports, e.g. ">=1.5,<2.0".
func (s VersionSet) String() string {
	if s.Empty() {
		return "<none>"
	}
	if s.Full() {
		return "*"
	}
	parts := make([]string, 0, len(s.intervals))
	for _, iv := range s.intervals {
		parts = append(parts, iv.String())
	}
	return strings.Join(parts, " || ")
}

func (iv interval) String() string {
	if iv.low != nil && iv.high != nil && iv.low.Compare(*iv.high) == 0 {
		return "==" + iv.low.String()
	}
	var parts []string
	if iv.low != nil {
		op := ">"
		if iv.lowInc {
			op = ">="
		}
		parts = append(parts, op+iv.low.String())
	}
	if iv.high != nil {
		op := "<"
		if iv.highInc {
			op = "<="
		}
		parts = append(parts, op+iv.high.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ",")
}
