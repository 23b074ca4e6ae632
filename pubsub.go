package redkit

import (
	"sort"
	"sync"

	"github.com/l00pss/redkit/internal/pattern"
)

// PubSub is the exact-channel and pattern-channel subscription registry
// (spec.md §4.10). All registry mutations run under one mutex — the
// "single-threaded serialization stream" the spec calls for reduces, in
// a goroutine-per-connection Go server, to a plain exclusive lock
// around map writes, which is what the teacher's own Server.mu already
// models for its connection registry.
type PubSub struct {
	mu       sync.Mutex
	channels map[string]map[*Connection]struct{}
	patterns map[string]map[*Connection]struct{}
}

func newPubSub() *PubSub {
	return &PubSub{
		channels: make(map[string]map[*Connection]struct{}),
		patterns: make(map[string]map[*Connection]struct{}),
	}
}

// Subscribe adds conn to channel's subscriber set. Returns the
// connection's new total subscription count.
func (p *PubSub) Subscribe(conn *Connection, channel string) int {
	p.mu.Lock()
	if p.channels[channel] == nil {
		p.channels[channel] = make(map[*Connection]struct{})
	}
	p.channels[channel][conn] = struct{}{}
	p.mu.Unlock()

	conn.subMu.Lock()
	conn.subs[channel] = struct{}{}
	n := len(conn.subs) + len(conn.psubs)
	conn.subMu.Unlock()
	conn.refreshFrameState()
	return n
}

// Unsubscribe removes conn from channel's subscriber set, returning the
// connection's new total subscription count.
func (p *PubSub) Unsubscribe(conn *Connection, channel string) int {
	p.mu.Lock()
	if set, ok := p.channels[channel]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(p.channels, channel)
		}
	}
	p.mu.Unlock()

	conn.subMu.Lock()
	delete(conn.subs, channel)
	n := len(conn.subs) + len(conn.psubs)
	conn.subMu.Unlock()
	conn.refreshFrameState()
	return n
}

// PSubscribe/PUnsubscribe mirror Subscribe/Unsubscribe for patterns.
func (p *PubSub) PSubscribe(conn *Connection, pat string) int {
	p.mu.Lock()
	if p.patterns[pat] == nil {
		p.patterns[pat] = make(map[*Connection]struct{})
	}
	p.patterns[pat][conn] = struct{}{}
	p.mu.Unlock()

	conn.subMu.Lock()
	conn.psubs[pat] = struct{}{}
	n := len(conn.subs) + len(conn.psubs)
	conn.subMu.Unlock()
	conn.refreshFrameState()
	return n
}

func (p *PubSub) PUnsubscribe(conn *Connection, pat string) int {
	p.mu.Lock()
	if set, ok := p.patterns[pat]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(p.patterns, pat)
		}
	}
	p.mu.Unlock()

	conn.subMu.Lock()
	delete(conn.psubs, pat)
	n := len(conn.subs) + len(conn.psubs)
	conn.subMu.Unlock()
	conn.refreshFrameState()
	return n
}

// removeSubscriber drops conn from every registry it's a member of,
// called on connection close (spec.md §4.9).
func (p *PubSub) removeSubscriber(conn *Connection) {
	conn.subMu.Lock()
	channels := make([]string, 0, len(conn.subs))
	for ch := range conn.subs {
		channels = append(channels, ch)
	}
	pats := make([]string, 0, len(conn.psubs))
	for pt := range conn.psubs {
		pats = append(pats, pt)
	}
	conn.subMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range channels {
		if set, ok := p.channels[ch]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(p.channels, ch)
			}
		}
	}
	for _, pt := range pats {
		if set, ok := p.patterns[pt]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(p.patterns, pt)
			}
		}
	}
}

// Publish delivers msg to every exact subscriber of channel and every
// pattern subscriber whose pattern matches channel, and returns the
// total number of subscribers reached (spec.md §4.10).
func (p *PubSub) Publish(channel, msg string) int {
	p.mu.Lock()
	exact := make([]*Connection, 0, len(p.channels[channel]))
	for c := range p.channels[channel] {
		exact = append(exact, c)
	}
	type patMatch struct {
		pat  string
		conn *Connection
	}
	var patMatches []patMatch
	for pat, subs := range p.patterns {
		compiled, err := pattern.Compile(pat)
		if err != nil {
			continue
		}
		if !compiled.Match(channel) {
			continue
		}
		for c := range subs {
			patMatches = append(patMatches, patMatch{pat: pat, conn: c})
		}
	}
	p.mu.Unlock()

	for _, c := range exact {
		c.writeAsync(RedisValue{Type: Array, Array: []RedisValue{
			{Type: BulkString, Bulk: []byte("message")},
			{Type: BulkString, Bulk: []byte(channel)},
			{Type: BulkString, Bulk: []byte(msg)},
		}})
	}
	for _, m := range patMatches {
		m.conn.writeAsync(RedisValue{Type: Array, Array: []RedisValue{
			{Type: BulkString, Bulk: []byte("pmessage")},
			{Type: BulkString, Bulk: []byte(m.pat)},
			{Type: BulkString, Bulk: []byte(channel)},
			{Type: BulkString, Bulk: []byte(msg)},
		}})
	}
	return len(exact) + len(patMatches)
}

// NumPat reports the number of distinct patterns with at least one subscriber.
func (p *PubSub) NumPat() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.patterns)
}

// NumSub reports subscriber counts for the given channels, in order.
func (p *PubSub) NumSub(channels []string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = len(p.channels[ch])
	}
	return out
}

// Channels returns active channel names, optionally filtered by pattern.
func (p *PubSub) Channels(filter string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var compiled *pattern.Pattern
	if filter != "" {
		c, err := pattern.Compile(filter)
		if err == nil {
			compiled = &c
		}
	}

	out := make([]string, 0, len(p.channels))
	for ch, subs := range p.channels {
		if len(subs) == 0 {
			continue
		}
		if compiled != nil && !compiled.Match(ch) {
			continue
		}
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
