package dispatch

import "strings"

// Command is one row of the static command table: name plus the
// metadata needed to validate arity and to locate key arguments before
// a handler ever runs.
type Command struct {
	Name      string
	Shape     Shape
	Flags     Flag
	FirstKey  int
	LastKey   int
	Step      int
	ArityRule Arity
}

// Table is a case-insensitive, immutable lookup over the command set,
// built once at server construction time from a fixed slice of Command
// rows (spec.md §4.7).
type Table struct {
	byName map[string]Command
	order  []string
}

// NewTable builds a Table from rows, canonicalizing names to uppercase.
func NewTable(rows []Command) *Table {
	t := &Table{byName: make(map[string]Command, len(rows))}
	for _, row := range rows {
		name := strings.ToUpper(row.Name)
		row.Name = name
		t.byName[name] = row
		t.order = append(t.order, name)
	}
	return t
}

// Lookup finds a command by name, case-insensitively.
func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.byName[strings.ToUpper(name)]
	return c, ok
}

// Count reports the number of registered commands, for COMMAND COUNT.
func (t *Table) Count() int { return len(t.order) }

// Each iterates the table in declaration order, for COMMAND.
func (t *Table) Each(f func(Command)) {
	for _, name := range t.order {
		f(t.byName[name])
	}
}

// DefaultTable is the full command table for the supported verb set
// (spec.md §4.8). Flags are conservative: readonly+fast for simple
// lookups, write(+denyoom where it can grow memory) for mutators.
var DefaultTable = NewTable([]Command{
	// keyspace
	{Name: "KEYS", Shape: SingleValue, Flags: FlagReadonly, ArityRule: Fix(1)},
	{Name: "EXISTS", Shape: OneOrMoreValues, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "DEL", Shape: OneOrMoreValues, Flags: FlagWrite, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "TYPE", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "RENAME", Shape: KeyKey, Flags: FlagWrite, FirstKey: 1, LastKey: 2, Step: 1, ArityRule: Fix(2)},
	{Name: "RENAMENX", Shape: KeyKey, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 2, Step: 1, ArityRule: Fix(2)},
	{Name: "DBSIZE", Shape: NoArgs, Flags: FlagReadonly | FlagFast, ArityRule: Fix(0)},

	// expirations
	{Name: "EXPIRE", Shape: KeyValue, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "PEXPIRE", Shape: KeyValue, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "EXPIREAT", Shape: KeyValue, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "PEXPIREAT", Shape: KeyValue, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "TTL", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "PTTL", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "PERSIST", Shape: Key, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},

	// strings
	{Name: "GET", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "SET", Shape: KeyValueOptions, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "SETNX", Shape: KeyValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "SETEX", Shape: KeyValueValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "PSETEX", Shape: KeyValueValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "GETSET", Shape: KeyValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "APPEND", Shape: KeyValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "STRLEN", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "GETRANGE", Shape: KeyRange, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "SUBSTR", Shape: KeyRange, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "SETRANGE", Shape: KeyIndexValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "MGET", Shape: OneOrMoreValues, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "MSET", Shape: KeyValueMap, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: -1, Step: 2, ArityRule: Minimum(2)},
	{Name: "MSETNX", Shape: KeyValueMap, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: -1, Step: 2, ArityRule: Minimum(2)},
	{Name: "INCR", Shape: Key, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "DECR", Shape: Key, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "INCRBY", Shape: KeyValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "DECRBY", Shape: KeyValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},

	// lists
	{Name: "LLEN", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "LRANGE", Shape: KeyRange, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "LINDEX", Shape: KeyIndex, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "LSET", Shape: KeyIndexValue, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "LPUSH", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "RPUSH", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "LPUSHX", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "RPUSHX", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "LPOP", Shape: KeyIndex, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(1)},
	{Name: "RPOP", Shape: KeyIndex, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(1)},

	// hashes
	{Name: "HLEN", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "HGETALL", Shape: Key, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "HGET", Shape: KeyValue, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "HEXISTS", Shape: KeyValue, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "HSTRLEN", Shape: KeyValue, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "HKEYS", Shape: Key, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "HVALS", Shape: Key, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "HSET", Shape: KeyValueValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "HSETNX", Shape: KeyValueValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "HINCRBY", Shape: KeyValueValue, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(3)},
	{Name: "HMSET", Shape: KeyValueMap, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(3)},
	{Name: "HMGET", Shape: KeyValues, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "HDEL", Shape: KeyValues, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},

	// sets
	{Name: "SCARD", Shape: Key, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "SMEMBERS", Shape: Key, Flags: FlagReadonly, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(1)},
	{Name: "SISMEMBER", Shape: KeyValue, Flags: FlagReadonly | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Fix(2)},
	{Name: "SADD", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "SREM", Shape: KeyValues, Flags: FlagWrite | FlagFast, FirstKey: 1, LastKey: 1, Step: 1, ArityRule: Minimum(2)},
	{Name: "SDIFF", Shape: OneOrMoreValues, Flags: FlagReadonly, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "SINTER", Shape: OneOrMoreValues, Flags: FlagReadonly, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "SUNION", Shape: OneOrMoreValues, Flags: FlagReadonly, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(1)},
	{Name: "SDIFFSTORE", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(2)},
	{Name: "SINTERSTORE", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(2)},
	{Name: "SUNIONSTORE", Shape: KeyValues, Flags: FlagWrite | FlagDenyOOM, FirstKey: 1, LastKey: -1, Step: 1, ArityRule: Minimum(2)},

	// pub/sub
	{Name: "PUBLISH", Shape: ValueValue, Flags: FlagPubSub | FlagFast, ArityRule: Fix(2)},
	{Name: "SUBSCRIBE", Shape: OneOrMoreValues, Flags: FlagPubSub, ArityRule: Minimum(1)},
	{Name: "UNSUBSCRIBE", Shape: OneOrMoreValues, Flags: FlagPubSub, ArityRule: Minimum(0)},
	{Name: "PSUBSCRIBE", Shape: OneOrMoreValues, Flags: FlagPubSub, ArityRule: Minimum(1)},
	{Name: "PUNSUBSCRIBE", Shape: OneOrMoreValues, Flags: FlagPubSub, ArityRule: Minimum(0)},
	{Name: "PUBSUB", Shape: OneOrMoreValues, Flags: FlagPubSub | FlagRandom, ArityRule: Minimum(1)},

	// server
	{Name: "PING", Shape: OptionalValue, Flags: FlagFast, ArityRule: Minimum(0)},
	{Name: "ECHO", Shape: SingleValue, Flags: FlagFast, ArityRule: Fix(1)},
	{Name: "QUIT", Shape: NoArgs, Flags: FlagFast, ArityRule: Fix(0)},
	{Name: "SELECT", Shape: SingleValue, Flags: FlagLoading | FlagFast, ArityRule: Fix(1)},
	{Name: "SWAPDB", Shape: ValueValue, Flags: FlagWrite | FlagFast, ArityRule: Fix(2)},
	{Name: "MONITOR", Shape: NoArgs, Flags: FlagAdmin | FlagNoScript, ArityRule: Fix(0)},
	{Name: "SAVE", Shape: NoArgs, Flags: FlagAdmin, ArityRule: Fix(0)},
	{Name: "BGSAVE", Shape: NoArgs, Flags: FlagAdmin, ArityRule: Minimum(0)},
	{Name: "LASTSAVE", Shape: NoArgs, Flags: FlagFast, ArityRule: Fix(0)},
	{Name: "COMMAND", Shape: OneOrMoreValues, Flags: FlagLoading | FlagStale, ArityRule: Minimum(0)},
	{Name: "CLIENT", Shape: OneOrMoreValues, Flags: FlagAdmin, ArityRule: Minimum(1)},
})
