package domain

import "sort"

// InstalledState maps package names to the version currently materialized
// in an environment. It is reconstructed by introspecting the live
// environment and mutated exclusively by the synchronizer.
type InstalledState map[string]Version

// Matches reports whether the state already equals the target graph
// exactly: same package set at the same versions. A matching sync is a
// no-op.
func (s InstalledState) Matches(target *ResolutionGraph) bool {
	if len(s) != target.Len() {
		return false
	}
	for _, p := range target.SortedPackages() {
		installed, ok := s[p.Name.String()]
		if !ok || installed.Compare(p.Version) != 0 {
			return false
		}
	}
	return true
}

// SortedNames returns the installed package names in lexicographic order.
func (s InstalledState) SortedNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IntegrityViolation reports one installed package whose materialized
// artifact no longer matches its installation record.
type IntegrityViolation struct {
	Package string
	Reason  string
}
