package store

// HashIncrBy applies HINCRBY's semantics to a single field of h in
// place: missing field behaves as 0, non-integer field content fails.
// Returns the new value and true, or (0, false) if the field holds a
// non-integer string.
func HashIncrBy(h map[string][]byte, field string, delta int64) (int64, bool) {
	cur := int64(0)
	if existing, ok := h[field]; ok {
		n, ok := ParseInt(existing)
		if !ok {
			return 0, false
		}
		cur = n
	}
	cur += delta
	h[field] = FormatInt(cur)
	return cur, true
}

// HashKeys and HashVals return field names / values in map iteration
// order; HGETALL/HKEYS/HVALS don't promise an order, per spec.
func HashKeys(h map[string][]byte) []string {
	out := make([]string, 0, len(h))
	for f := range h {
		out = append(out, f)
	}
	return out
}

func HashVals(h map[string][]byte) [][]byte {
	out := make([][]byte, 0, len(h))
	for _, v := range h {
		out = append(out, v)
	}
	return out
}
