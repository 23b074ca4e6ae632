package store

import mapset "github.com/deckarep/golang-set/v2"

// setMembersSorted is a tiny helper so SMEMBERS/set-algebra responses
// have a stable-enough iteration order for tests; Redis itself makes no
// ordering guarantee for sets, so any deterministic order is compliant.
func setMembersSorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	// Simple insertion sort: set sizes in this server are expected to
	// stay small (test fixtures, dev workloads), so O(n^2) is fine and
	// avoids pulling in sort for a handful of elements.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// SetDiff returns the members of a that are not in any of others.
func SetDiff(a mapset.Set[string], others ...mapset.Set[string]) mapset.Set[string] {
	result := a.Clone()
	for _, o := range others {
		result = result.Difference(o)
	}
	return result
}

// SetInter returns the members common to a and every set in others.
func SetInter(a mapset.Set[string], others ...mapset.Set[string]) mapset.Set[string] {
	result := a.Clone()
	for _, o := range others {
		result = result.Intersect(o)
	}
	return result
}

// SetUnion returns the members present in a or any set in others.
func SetUnion(a mapset.Set[string], others ...mapset.Set[string]) mapset.Set[string] {
	result := a.Clone()
	for _, o := range others {
		result = result.Union(o)
	}
	return result
}
