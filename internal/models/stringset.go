package models

// StringSet is a set of strings persisted as a JSON array column, grounded
// on the teacher's PqStringArray (internal/models/relay_profile_mapping.go).
// It backs File.CompletedTasks: spec.md §3 requires this set be
// monotonically growing and that membership-add be idempotent.
type StringSet []string

// Has reports whether s is a member of the set.
func (ss StringSet) Has(s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Add returns a copy of ss with s added, unless already present (idempotent).
// The original slice is never mutated in place.
func (ss StringSet) Add(s string) StringSet {
	if ss.Has(s) {
		return ss
	}
	out := make(StringSet, len(ss), len(ss)+1)
	copy(out, ss)
	return append(out, s)
}

// ContainsAll reports whether every element of required is present in ss.
func (ss StringSet) ContainsAll(required []string) bool {
	for _, r := range required {
		if !ss.Has(r) {
			return false
		}
	}
	return true
}
