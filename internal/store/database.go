package store

import (
	"errors"
	"time"
)

// Sentinel errors the command layer maps onto RESP error codes
// (see errors.go in the root package for the mapping table).
var (
	ErrWrongType   = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNoSuchKey   = errors.New("no such key")
	ErrNotInteger  = errors.New("value is not an integer or out of range")
	ErrOutOfRange  = errors.New("index out of range")
	ErrBadDBIndex  = errors.New("DB index is out of range")
	ErrSyntax      = errors.New("syntax error")
)

// SavePoint mirrors spec.md's (delay, change-count-threshold) rule.
type SavePoint struct {
	Delay           time.Duration
	ChangeThreshold int
}

// database is one logical keyspace: the value map, the expiration map,
// the write change-counter, and the save-point config consulted on
// every successful write. It holds no lock of its own — callers
// (DatabaseSet) serialize access through a single reader/writer lock
// for the whole set, per spec.md §4.5.
type database struct {
	keys        map[string]Value
	expirations map[string]time.Time

	changes     uint64
	savePoints  []SavePoint
	onSavePoint func(delay time.Duration)
}

func newDatabase(savePoints []SavePoint, onSavePoint func(time.Duration)) *database {
	return &database{
		keys:        make(map[string]Value),
		expirations: make(map[string]time.Time),
		savePoints:  savePoints,
		onSavePoint: onSavePoint,
	}
}

// bumpChanges increments the write counter and, if the new count
// exactly matches a configured save point's threshold, fires the
// matching save point with the smallest delay (spec.md §4.4: "if
// multiple match, choose the one with the smallest delay").
func (d *database) bumpChanges() {
	d.changes++
	var best *SavePoint
	for i := range d.savePoints {
		sp := &d.savePoints[i]
		if sp.ChangeThreshold >= 0 && uint64(sp.ChangeThreshold) == d.changes {
			if best == nil || sp.Delay < best.Delay {
				best = sp
			}
		}
	}
	if best != nil && d.onSavePoint != nil {
		d.onSavePoint(best.Delay)
	}
}

func (d *database) get(key string) (Value, bool) {
	v, ok := d.keys[key]
	return v, ok
}

// deleteKey removes a key's value AND its expiration, per spec.md §3's
// invariant that an expiration entry never outlives its key.
func (d *database) deleteKey(key string) {
	delete(d.keys, key)
	delete(d.expirations, key)
}

func (d *database) del(keys ...string) int {
	n := 0
	for _, k := range keys {
		if _, ok := d.keys[k]; ok {
			d.deleteKey(k)
			n++
		}
	}
	if n > 0 {
		d.bumpChanges()
	}
	return n
}

func (d *database) exists(keys ...string) int {
	n := 0
	for _, k := range keys {
		if _, ok := d.keys[k]; ok {
			n++
		}
	}
	return n
}

func (d *database) typeOf(key string) (Kind, bool) {
	v, ok := d.keys[key]
	if !ok {
		return 0, false
	}
	return v.Kind, true
}

// rename moves src's value and expiration onto dst, overwriting
// whatever dst held. Fails with ErrNoSuchKey if src is absent.
func (d *database) rename(src, dst string) error {
	v, ok := d.keys[src]
	if !ok {
		return ErrNoSuchKey
	}
	if src == dst {
		d.bumpChanges()
		return nil
	}
	d.keys[dst] = v
	if exp, ok := d.expirations[src]; ok {
		d.expirations[dst] = exp
	} else {
		delete(d.expirations, dst)
	}
	d.deleteKey(src)
	d.bumpChanges()
	return nil
}

func (d *database) renameNX(src, dst string) (bool, error) {
	if _, ok := d.keys[src]; !ok {
		return false, ErrNoSuchKey
	}
	if _, ok := d.keys[dst]; ok {
		return false, nil
	}
	return true, d.rename(src, dst)
}

func (d *database) size() int { return len(d.keys) }

func (d *database) keyList() []string {
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		out = append(out, k)
	}
	return out
}

// setExpireAt applies EXPIRE/PEXPIRE/EXPIREAT/PEXPIREAT semantics: a
// deadline already in the past deletes the key immediately. Reports
// whether the key existed (classic Redis "did this succeed" return).
func (d *database) setExpireAt(key string, deadline, now time.Time) bool {
	if _, ok := d.keys[key]; !ok {
		return false
	}
	if !deadline.After(now) {
		d.deleteKey(key)
		d.bumpChanges()
		return true
	}
	d.expirations[key] = deadline
	d.bumpChanges()
	return true
}

func (d *database) persist(key string) bool {
	if _, ok := d.keys[key]; !ok {
		return false
	}
	if _, ok := d.expirations[key]; !ok {
		return false
	}
	delete(d.expirations, key)
	d.bumpChanges()
	return true
}

// ttlMillis reports remaining time-to-live in milliseconds, or the
// sentinel -2 (missing key) / -1 (no expiration), per spec.md §4.4.
func (d *database) ttlMillis(key string, now time.Time) int64 {
	if _, ok := d.keys[key]; !ok {
		return -2
	}
	exp, ok := d.expirations[key]
	if !ok {
		return -1
	}
	remaining := exp.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Milliseconds()
}

// sweepExpired removes every key whose deadline is at or before now,
// and reports the earliest remaining deadline (zero Time if none).
func (d *database) sweepExpired(now time.Time) (swept int, next time.Time) {
	for k, exp := range d.expirations {
		if !exp.After(now) {
			d.deleteKey(k)
			swept++
		}
	}
	for _, exp := range d.expirations {
		if next.IsZero() || exp.Before(next) {
			next = exp
		}
	}
	return swept, next
}
