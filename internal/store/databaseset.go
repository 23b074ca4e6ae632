package store

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/l00pss/redkit/internal/pattern"
)

// NumDatabases is the fixed size of the keyspace array, per spec.md §3.
const NumDatabases = 16

// expireTick is the quantization granularity for expiration wake-ups;
// deadlines are rounded to this tick so adjacent SET...EX calls
// coalesce onto one timer instead of scheduling one each.
const expireTick = 10 * time.Millisecond

// DatabaseSet is the fixed 16-entry keyspace array guarded by a single
// reader/writer lock (spec.md §4.5). All command handlers talk to the
// store exclusively through this type; database.go's type stays
// unexported plumbing.
type DatabaseSet struct {
	mu  sync.RWMutex
	dbs [NumDatabases]*database

	pendingWake [NumDatabases]time.Time // quantized tick of the scheduled wake, zero if none
	timers      [NumDatabases]*time.Timer

	now func() time.Time
}

// Option configures a DatabaseSet at construction.
type Option func(*DatabaseSet)

// WithClock overrides the wall clock, for deterministic expiration tests.
func WithClock(now func() time.Time) Option {
	return func(ds *DatabaseSet) { ds.now = now }
}

// NewDatabaseSet builds 16 empty databases, each configured with
// savePoints and onSavePoint exactly as spec.md §4.4 describes: every
// successful write on any database consults the same save-point table.
func NewDatabaseSet(savePoints []SavePoint, onSavePoint func(time.Duration), opts ...Option) *DatabaseSet {
	ds := &DatabaseSet{now: time.Now}
	for _, o := range opts {
		o(ds)
	}
	for i := range ds.dbs {
		ds.dbs[i] = newDatabase(savePoints, onSavePoint)
	}
	return ds
}

// Close stops every pending expiration timer. Safe to call more than once.
func (ds *DatabaseSet) Close() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for i := range ds.timers {
		if ds.timers[i] != nil {
			ds.timers[i].Stop()
			ds.timers[i] = nil
		}
	}
}

func validIndex(idx int) error {
	if idx < 0 || idx >= NumDatabases {
		return ErrBadDBIndex
	}
	return nil
}

// --- generic read/write helpers -------------------------------------

func (ds *DatabaseSet) withRead(idx int, f func(*database) error) error {
	if err := validIndex(idx); err != nil {
		return err
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return f(ds.dbs[idx])
}

func (ds *DatabaseSet) withWrite(idx int, f func(*database) error) error {
	if err := validIndex(idx); err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return f(ds.dbs[idx])
}

// --- keyspace (C8: KEYS/EXISTS/DEL/TYPE/RENAME/RENAMENX/DBSIZE) ------

func (ds *DatabaseSet) Exists(idx int, keys ...string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		n = d.exists(keys...)
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) Del(idx int, keys ...string) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		n = d.del(keys...)
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) TypeOf(idx int, key string) (Kind, bool, error) {
	var k Kind
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		k, ok = d.typeOf(key)
		return nil
	})
	return k, ok, err
}

func (ds *DatabaseSet) Rename(idx int, src, dst string) error {
	return ds.withWrite(idx, func(d *database) error { return d.rename(src, dst) })
}

func (ds *DatabaseSet) RenameNX(idx int, src, dst string) (bool, error) {
	var ok bool
	err := ds.withWrite(idx, func(d *database) error {
		var e error
		ok, e = d.renameNX(src, dst)
		return e
	})
	return ok, err
}

func (ds *DatabaseSet) DBSize(idx int) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		n = d.size()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) Keys(idx int, p pattern.Pattern) ([]string, error) {
	var out []string
	err := ds.withRead(idx, func(d *database) error {
		for _, k := range d.keyList() {
			if p.Match(k) {
				out = append(out, k)
			}
		}
		return nil
	})
	if out == nil {
		out = []string{}
	}
	return out, err
}

// SwapDB exchanges two databases' entire contents atomically. A no-op
// (but still successful) when i == j, per spec.md §4.8.
func (ds *DatabaseSet) SwapDB(i, j int) error {
	if err := validIndex(i); err != nil {
		return err
	}
	if err := validIndex(j); err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if i == j {
		return nil
	}
	ds.dbs[i], ds.dbs[j] = ds.dbs[j], ds.dbs[i]
	ds.pendingWake[i], ds.pendingWake[j] = ds.pendingWake[j], ds.pendingWake[i]
	ds.timers[i], ds.timers[j] = ds.timers[j], ds.timers[i]
	return nil
}

// --- expirations (C4) -------------------------------------------------

func (ds *DatabaseSet) SetExpireAt(idx int, key string, deadline time.Time) (bool, error) {
	var applied bool
	err := ds.withWrite(idx, func(d *database) error {
		applied = d.setExpireAt(key, deadline, ds.now())
		return nil
	})
	if err == nil && applied {
		ds.scheduleWakeLocked(idx)
	}
	return applied, err
}

func (ds *DatabaseSet) Persist(idx int, key string) (bool, error) {
	var ok bool
	err := ds.withWrite(idx, func(d *database) error {
		ok = d.persist(key)
		return nil
	})
	return ok, err
}

func (ds *DatabaseSet) TTLMillis(idx int, key string) (int64, error) {
	var ms int64
	err := ds.withRead(idx, func(d *database) error {
		ms = d.ttlMillis(key, ds.now())
		return nil
	})
	return ms, err
}

// scheduleWakeLocked (re)computes the earliest pending deadline for db
// idx and arranges a timer no later than it, coalescing onto an
// already-pending tick per spec.md §4.4's quantized scheduler. Must be
// called with no lock held by the caller's goroutine: it takes ds.mu,
// the same lock withWrite/withRead use, so it is called only after
// withWrite returns.
func (ds *DatabaseSet) scheduleWakeLocked(idx int) {
	ds.mu.Lock()
	d := ds.dbs[idx]
	var earliest time.Time
	for _, exp := range d.expirations {
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	ds.mu.Unlock()

	if earliest.IsZero() {
		return
	}

	tick := earliest.Truncate(expireTick)
	ds.mu.Lock()
	pending := ds.pendingWake[idx]
	if !pending.IsZero() && !tick.Before(pending) {
		ds.mu.Unlock()
		return
	}
	if ds.timers[idx] != nil {
		ds.timers[idx].Stop()
	}
	ds.pendingWake[idx] = tick
	delay := time.Until(earliest)
	if delay < 0 {
		delay = 0
	}
	ds.timers[idx] = time.AfterFunc(delay, func() { ds.fireExpiration(idx) })
	ds.mu.Unlock()
}

func (ds *DatabaseSet) fireExpiration(idx int) {
	ds.mu.Lock()
	d := ds.dbs[idx]
	_, next := d.sweepExpired(ds.now())
	ds.pendingWake[idx] = time.Time{}
	ds.timers[idx] = nil
	ds.mu.Unlock()

	if !next.IsZero() {
		ds.scheduleWakeLocked(idx)
	}
}

// ScheduleExpiration forces an immediate sweep-and-reschedule pass for
// db idx, used by the snapshot manager right after Load so any keys
// that expired while the server was down get swept promptly
// (spec.md §4.6).
func (ds *DatabaseSet) ScheduleExpiration(idx int, now time.Time) {
	ds.mu.Lock()
	d := ds.dbs[idx]
	_, next := d.sweepExpired(now)
	ds.mu.Unlock()
	if !next.IsZero() {
		ds.scheduleWakeLocked(idx)
	}
}

// --- strings ----------------------------------------------------------

func (ds *DatabaseSet) GetString(idx int, key string) ([]byte, bool, error) {
	var b []byte
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		v, found := d.get(key)
		if !found {
			return nil
		}
		if v.Kind != KindString {
			return ErrWrongType
		}
		b, ok = v.Str, true
		return nil
	})
	return b, ok, err
}

// SetString implements SET's storage half: val is stored unconditionally
// (NX/XX gating happens in the command handler, which already knows
// whether the key existed). If expireAt is non-nil the key gets that
// deadline; otherwise, unless keepTTL is true, any existing expiration
// is cleared (plain SET removes TTL per spec.md §4.8).
func (ds *DatabaseSet) SetString(idx int, key string, val []byte, expireAt *time.Time, keepTTL bool) error {
	err := ds.withWrite(idx, func(d *database) error {
		d.keys[key] = newStringValue(val)
		switch {
		case expireAt != nil:
			d.expirations[key] = *expireAt
		case !keepTTL:
			delete(d.expirations, key)
		}
		d.bumpChanges()
		return nil
	})
	if err == nil && expireAt != nil {
		ds.scheduleWakeLocked(idx)
	}
	return err
}

// GetSet implements GETSET: store val, return the previous string (or
// nil,false if absent; a key of another kind fails with ErrWrongType,
// matching GET).
func (ds *DatabaseSet) GetSet(idx int, key string, val []byte) ([]byte, bool, error) {
	var old []byte
	var had bool
	err := ds.withWrite(idx, func(d *database) error {
		if v, ok := d.get(key); ok {
			if v.Kind != KindString {
				return ErrWrongType
			}
			old, had = v.Str, true
		}
		d.keys[key] = newStringValue(val)
		delete(d.expirations, key)
		d.bumpChanges()
		return nil
	})
	return old, had, err
}

func (ds *DatabaseSet) Append(idx int, key string, suffix []byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if ok && v.Kind != KindString {
			return ErrWrongType
		}
		var cur []byte
		if ok {
			cur = v.Str
		}
		cur = append(append([]byte{}, cur...), suffix...)
		d.keys[key] = newStringValue(cur)
		n = len(cur)
		d.bumpChanges()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) StrLen(idx int, key string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return nil
		}
		if v.Kind != KindString {
			return ErrWrongType
		}
		n = len(v.Str)
		return nil
	})
	return n, err
}

// GetRange implements GETRANGE/SUBSTR's inclusive, clamp-to-bounds
// negative-index semantics.
func (ds *DatabaseSet) GetRange(idx int, key string, start, end int) ([]byte, error) {
	var out []byte
	err := ds.withRead(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			out = []byte{}
			return nil
		}
		if v.Kind != KindString {
			return ErrWrongType
		}
		s := v.Str
		n := len(s)
		if n == 0 {
			out = []byte{}
			return nil
		}
		if start < 0 {
			start += n
		}
		if end < 0 {
			end += n
		}
		if start < 0 {
			start = 0
		}
		if end >= n {
			end = n - 1
		}
		if start > end || start >= n {
			out = []byte{}
			return nil
		}
		out = append([]byte{}, s[start:end+1]...)
		return nil
	})
	return out, err
}

// SetRange zero-pads as needed and returns the new length.
func (ds *DatabaseSet) SetRange(idx int, key string, offset int, val []byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if ok && v.Kind != KindString {
			return ErrWrongType
		}
		var cur []byte
		if ok {
			cur = append([]byte{}, v.Str...)
		}
		need := offset + len(val)
		if len(cur) < need {
			cur = append(cur, make([]byte, need-len(cur))...)
		}
		copy(cur[offset:], val)
		d.keys[key] = newStringValue(cur)
		n = len(cur)
		d.bumpChanges()
		return nil
	})
	return n, err
}

// IncrBy implements INCR/DECR/INCRBY/DECRBY: a missing key is treated
// as 0; a non-integer existing value fails with ErrNotInteger.
func (ds *DatabaseSet) IncrBy(idx int, key string, delta int64) (int64, error) {
	var result int64
	err := ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if ok && v.Kind != KindString {
			return ErrWrongType
		}
		cur := int64(0)
		if ok {
			n, parsed := ParseInt(v.Str)
			if !parsed {
				return ErrNotInteger
			}
			cur = n
		}
		result = cur + delta
		d.keys[key] = newStringValue(FormatInt(result))
		d.bumpChanges()
		return nil
	})
	return result, err
}

// --- lists --------------------------------------------------------------

func (ds *DatabaseSet) listFor(d *database, key string, createIfMissing bool) (*List, bool, error) {
	v, ok := d.get(key)
	if !ok {
		if !createIfMissing {
			return nil, false, nil
		}
		l := newList()
		d.keys[key] = newListValue(l)
		return l, true, nil
	}
	if v.Kind != KindList {
		return nil, false, ErrWrongType
	}
	return v.List, true, nil
}

func (ds *DatabaseSet) LPush(idx int, key string, values ...[]byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		l, _, err := ds.listFor(d, key, true)
		if err != nil {
			return err
		}
		l.LPush(values...)
		n = l.Len()
		d.bumpChanges()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) RPush(idx int, key string, values ...[]byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		l, _, err := ds.listFor(d, key, true)
		if err != nil {
			return err
		}
		l.RPush(values...)
		n = l.Len()
		d.bumpChanges()
		return nil
	})
	return n, err
}

// LPushX/RPushX only push when the key already holds a list; return
// (0, nil) if the key is absent.
func (ds *DatabaseSet) LPushX(idx int, key string, values ...[]byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		l, existed, err := ds.listFor(d, key, false)
		if err != nil {
			return err
		}
		if !existed {
			return nil
		}
		l.LPush(values...)
		n = l.Len()
		d.bumpChanges()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) RPushX(idx int, key string, values ...[]byte) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		l, existed, err := ds.listFor(d, key, false)
		if err != nil {
			return err
		}
		if !existed {
			return nil
		}
		l.RPush(values...)
		n = l.Len()
		d.bumpChanges()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) LPop(idx int, key string, count int) ([][]byte, error) {
	var out [][]byte
	err := ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return nil
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		out = v.List.LPop(count)
		if len(out) > 0 {
			d.bumpChanges()
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) RPop(idx int, key string, count int) ([][]byte, error) {
	var out [][]byte
	err := ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return nil
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		out = v.List.RPop(count)
		if len(out) > 0 {
			d.bumpChanges()
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) LLen(idx int, key string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return nil
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		n = v.List.Len()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) LIndex(idx int, key string, i int) ([]byte, bool, error) {
	var b []byte
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		v, found := d.get(key)
		if !found {
			return nil
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		b, ok = v.List.Index(i)
		return nil
	})
	return b, ok, err
}

func (ds *DatabaseSet) LSet(idx int, key string, i int, val []byte) error {
	return ds.withWrite(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return ErrNoSuchKey
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		if !v.List.Set(i, val) {
			return ErrOutOfRange
		}
		d.bumpChanges()
		return nil
	})
}

func (ds *DatabaseSet) LRange(idx int, key string, start, stop int) ([][]byte, error) {
	out := [][]byte{}
	err := ds.withRead(idx, func(d *database) error {
		v, ok := d.get(key)
		if !ok {
			return nil
		}
		if v.Kind != KindList {
			return ErrWrongType
		}
		out = v.List.Range(start, stop)
		return nil
	})
	return out, err
}

// --- hashes ---------------------------------------------------------

func (ds *DatabaseSet) hashFor(d *database, key string, createIfMissing bool) (map[string][]byte, error) {
	v, ok := d.get(key)
	if !ok {
		if !createIfMissing {
			return nil, nil
		}
		h := make(map[string][]byte)
		d.keys[key] = newHashValue(h)
		return h, nil
	}
	if v.Kind != KindHash {
		return nil, ErrWrongType
	}
	return v.Hash, nil
}

// HSet reports whether field was newly created (1) or updated (0),
// matching spec.md's "HSET returns the number of new fields... 1 if
// new, 0 if updated" simplification for a single field/value pair.
func (ds *DatabaseSet) HSet(idx int, key, field string, val []byte) (bool, error) {
	var created bool
	err := ds.withWrite(idx, func(d *database) error {
		h, err := ds.hashFor(d, key, true)
		if err != nil {
			return err
		}
		_, existed := h[field]
		h[field] = val
		created = !existed
		d.bumpChanges()
		return nil
	})
	return created, err
}

func (ds *DatabaseSet) HSetNX(idx int, key, field string, val []byte) (bool, error) {
	var set bool
	err := ds.withWrite(idx, func(d *database) error {
		h, err := ds.hashFor(d, key, true)
		if err != nil {
			return err
		}
		if _, existed := h[field]; existed {
			return nil
		}
		h[field] = val
		set = true
		d.bumpChanges()
		return nil
	})
	return set, err
}

func (ds *DatabaseSet) HGet(idx int, key, field string) ([]byte, bool, error) {
	var b []byte
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h == nil {
			return nil
		}
		b, ok = h[field]
		return nil
	})
	return b, ok, err
}

func (ds *DatabaseSet) HMGet(idx int, key string, fields []string) ([][]byte, error) {
	out := make([][]byte, len(fields))
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		for i, f := range fields {
			if h != nil {
				if v, ok := h[f]; ok {
					out[i] = v
					continue
				}
			}
			out[i] = nil
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) HMSet(idx int, key string, pairs [][2]string) error {
	return ds.withWrite(idx, func(d *database) error {
		h, err := ds.hashFor(d, key, true)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			h[p[0]] = []byte(p[1])
		}
		d.bumpChanges()
		return nil
	})
}

func (ds *DatabaseSet) HDel(idx int, key string, fields ...string) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h == nil {
			return nil
		}
		for _, f := range fields {
			if _, ok := h[f]; ok {
				delete(h, f)
				n++
			}
		}
		if n > 0 {
			d.bumpChanges()
		}
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) HKeys(idx int, key string) ([]string, error) {
	out := []string{}
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h != nil {
			out = HashKeys(h)
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) HVals(idx int, key string) ([][]byte, error) {
	out := [][]byte{}
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h != nil {
			out = HashVals(h)
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) HGetAll(idx int, key string) (map[string][]byte, error) {
	out := map[string][]byte{}
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		for f, v := range h {
			out[f] = v
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) HLen(idx int, key string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		n = len(h)
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) HExists(idx int, key, field string) (bool, error) {
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h != nil {
			_, ok = h[field]
		}
		return nil
	})
	return ok, err
}

func (ds *DatabaseSet) HStrLen(idx int, key, field string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, false)
		if e != nil {
			return e
		}
		if h != nil {
			n = len(h[field])
		}
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) HIncrBy(idx int, key, field string, delta int64) (int64, error) {
	var n int64
	err := ds.withWrite(idx, func(d *database) error {
		h, e := ds.hashFor(d, key, true)
		if e != nil {
			return e
		}
		var ok bool
		n, ok = HashIncrBy(h, field, delta)
		if !ok {
			return ErrNotInteger
		}
		d.bumpChanges()
		return nil
	})
	return n, err
}

// --- sets -------------------------------------------------------------

func (ds *DatabaseSet) setFor(d *database, key string, createIfMissing bool) (mapset.Set[string], error) {
	v, ok := d.get(key)
	if !ok {
		if !createIfMissing {
			return nil, nil
		}
		s := mapset.NewThreadUnsafeSet[string]()
		d.keys[key] = newSetValue(s)
		return s, nil
	}
	if v.Kind != KindSet {
		return nil, ErrWrongType
	}
	return v.Set, nil
}

func (ds *DatabaseSet) SAdd(idx int, key string, members ...string) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		s, err := ds.setFor(d, key, true)
		if err != nil {
			return err
		}
		for _, m := range members {
			if s.Add(m) {
				n++
			}
		}
		if n > 0 {
			d.bumpChanges()
		}
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) SRem(idx int, key string, members ...string) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		s, e := ds.setFor(d, key, false)
		if e != nil {
			return e
		}
		if s == nil {
			return nil
		}
		for _, m := range members {
			if s.Contains(m) {
				s.Remove(m)
				n++
			}
		}
		if n > 0 {
			d.bumpChanges()
		}
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) SMembers(idx int, key string) ([]string, error) {
	out := []string{}
	err := ds.withRead(idx, func(d *database) error {
		s, e := ds.setFor(d, key, false)
		if e != nil {
			return e
		}
		if s != nil {
			out = setMembersSorted(s)
		}
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) SIsMember(idx int, key, member string) (bool, error) {
	var ok bool
	err := ds.withRead(idx, func(d *database) error {
		s, e := ds.setFor(d, key, false)
		if e != nil {
			return e
		}
		if s != nil {
			ok = s.Contains(member)
		}
		return nil
	})
	return ok, err
}

func (ds *DatabaseSet) SCard(idx int, key string) (int, error) {
	var n int
	err := ds.withRead(idx, func(d *database) error {
		s, e := ds.setFor(d, key, false)
		if e != nil {
			return e
		}
		if s != nil {
			n = s.Cardinality()
		}
		return nil
	})
	return n, err
}

// setAlgebra loads keys[0] and keys[1:] as sets (missing keys count as
// empty sets) and combines them with combine.
func (ds *DatabaseSet) setAlgebra(d *database, keys []string, combine func(a mapset.Set[string], rest ...mapset.Set[string]) mapset.Set[string]) (mapset.Set[string], error) {
	sets := make([]mapset.Set[string], len(keys))
	for i, k := range keys {
		s, err := ds.setFor(d, k, false)
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = mapset.NewThreadUnsafeSet[string]()
		}
		sets[i] = s
	}
	if len(sets) == 0 {
		return mapset.NewThreadUnsafeSet[string](), nil
	}
	return combine(sets[0], sets[1:]...), nil
}

func (ds *DatabaseSet) SDiff(idx int, keys []string) ([]string, error) {
	var out []string
	err := ds.withRead(idx, func(d *database) error {
		s, err := ds.setAlgebra(d, keys, SetDiff)
		if err != nil {
			return err
		}
		out = setMembersSorted(s)
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) SInter(idx int, keys []string) ([]string, error) {
	var out []string
	err := ds.withRead(idx, func(d *database) error {
		s, err := ds.setAlgebra(d, keys, SetInter)
		if err != nil {
			return err
		}
		out = setMembersSorted(s)
		return nil
	})
	return out, err
}

func (ds *DatabaseSet) SUnion(idx int, keys []string) ([]string, error) {
	var out []string
	err := ds.withRead(idx, func(d *database) error {
		s, err := ds.setAlgebra(d, keys, SetUnion)
		if err != nil {
			return err
		}
		out = setMembersSorted(s)
		return nil
	})
	return out, err
}

// storeResult implements the *STORE variants: "evaluate result, then
// store" (spec.md §9 Open Question), so a destination that is also one
// of the source keys is read in its pre-store state before being
// overwritten with the freshly computed set.
func (ds *DatabaseSet) storeResult(idx int, dst string, keys []string, combine func(a mapset.Set[string], rest ...mapset.Set[string]) mapset.Set[string]) (int, error) {
	var n int
	err := ds.withWrite(idx, func(d *database) error {
		result, err := ds.setAlgebra(d, keys, combine)
		if err != nil {
			return err
		}
		d.keys[dst] = newSetValue(result)
		delete(d.expirations, dst)
		n = result.Cardinality()
		d.bumpChanges()
		return nil
	})
	return n, err
}

func (ds *DatabaseSet) SDiffStore(idx int, dst string, keys []string) (int, error) {
	return ds.storeResult(idx, dst, keys, SetDiff)
}

func (ds *DatabaseSet) SInterStore(idx int, dst string, keys []string) (int, error) {
	return ds.storeResult(idx, dst, keys, SetInter)
}

func (ds *DatabaseSet) SUnionStore(idx int, dst string, keys []string) (int, error) {
	return ds.storeResult(idx, dst, keys, SetUnion)
}

// --- snapshot support (C6 calls into C4/C5) --------------------------

// KeyRecord is one key's value plus its optional expiration, used by
// the snapshot package to serialize/deserialize a database.
type KeyRecord struct {
	Value      Value
	Expiration *time.Time
}

// ExportDatabase returns a deep-enough copy of db idx's contents for
// serialization. Read lock only: list, set and hash containers are
// copied here before the lock is released, per spec.md §9's CoW note.
func (ds *DatabaseSet) ExportDatabase(idx int) (map[string]KeyRecord, error) {
	out := map[string]KeyRecord{}
	err := ds.withRead(idx, func(d *database) error {
		for k, v := range d.keys {
			switch v.Kind {
			case KindList:
				v = NewListValueFromSlice(v.List.Range(0, -1))
			case KindSet:
				v = newSetValue(v.Set.Clone())
			case KindHash:
				h := make(map[string][]byte, len(v.Hash))
				for f, b := range v.Hash {
					h[f] = b
				}
				v = newHashValue(h)
			}
			rec := KeyRecord{Value: v}
			if exp, ok := d.expirations[k]; ok {
				t := exp
				rec.Expiration = &t
			}
			out[k] = rec
		}
		return nil
	})
	return out, err
}

// ImportDatabase replaces db idx's entire contents (used by Load).
func (ds *DatabaseSet) ImportDatabase(idx int, records map[string]KeyRecord) error {
	return ds.withWrite(idx, func(d *database) error {
		d.keys = make(map[string]Value, len(records))
		d.expirations = make(map[string]time.Time, len(records))
		for k, rec := range records {
			d.keys[k] = rec.Value
			if rec.Expiration != nil {
				d.expirations[k] = *rec.Expiration
			}
		}
		return nil
	})
}

// ResetChangeCounters zeroes every database's write counter under the
// write lock, called by the snapshot manager during every save, after
// the databases are exported and before they are serialized (spec.md §4.6).
func (ds *DatabaseSet) ResetChangeCounters() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, d := range ds.dbs {
		d.changes = 0
	}
}

// ChangeCounts reports each database's current write counter, for
// tests and CLIENT/INFO-style introspection.
func (ds *DatabaseSet) ChangeCounts() [NumDatabases]uint64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	var out [NumDatabases]uint64
	for i, d := range ds.dbs {
		out[i] = d.changes
	}
	return out
}
