package store

import "strconv"

// ParseInt parses the ASCII decimal form INCR/DECR/HINCRBY expect.
// The second return is false when b isn't a clean base-10 int64.
func ParseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

// FormatInt renders n the way INCR/DECR/HINCRBY store it back: plain
// ASCII decimal, no leading zeros, no plus sign.
func FormatInt(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}
