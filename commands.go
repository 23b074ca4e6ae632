/*
Package redkit wires the Redis verb set (spec.md §4.8) onto the server's
handler registry. Command bodies live in the handlers_*.go files, grouped
by data type; this file is just the registration map.

The teacher package exposed one register<Name>Handler(f) wrapper per
verb so callers could override a single command's behavior. This build
collapses that indirection: RegisterCommandFunc (server.go) is already
the general override hook, and the verb list here is long enough that a
thousand one-line wrappers added nothing but noise.
*/
package redkit

// registerDefaultHandlers wires every built-in command name onto its
// implementation. Called once from NewServer/NewServerWithConfig.
func (s *Server) registerDefaultHandlers() {
	for name, fn := range map[string]func(*Connection, *Command) RedisValue{
		// connection / server
		"PING":   handlePing,
		"ECHO":   handleEcho,
		"QUIT":   handleQuit,
		"SELECT": s.handleSelect,
		"SWAPDB": s.handleSwapDB,
		"MONITOR": s.handleMonitor,
		"SAVE":    s.handleSave,
		"BGSAVE":  s.handleBgSave,
		"LASTSAVE": s.handleLastSave,
		"COMMAND": s.handleCommandIntrospect,
		"CLIENT":  s.handleClient,

		// keyspace
		"KEYS":     s.handleKeys,
		"EXISTS":   s.handleExists,
		"DEL":      s.handleDel,
		"TYPE":     s.handleType,
		"RENAME":   s.handleRename,
		"RENAMENX": s.handleRenameNX,
		"DBSIZE":   s.handleDBSize,

		// expirations
		"EXPIRE":    s.handleExpire,
		"PEXPIRE":   s.handlePExpire,
		"EXPIREAT":  s.handleExpireAt,
		"PEXPIREAT": s.handlePExpireAt,
		"TTL":       s.handleTTL,
		"PTTL":      s.handlePTTL,
		"PERSIST":   s.handlePersist,

		// strings
		"GET":      s.handleGet,
		"SET":      s.handleSet,
		"SETNX":    s.handleSetNX,
		"SETEX":    s.handleSetEX,
		"PSETEX":   s.handlePSetEX,
		"GETSET":   s.handleGetSet,
		"APPEND":   s.handleAppend,
		"STRLEN":   s.handleStrLen,
		"GETRANGE": s.handleGetRange,
		"SUBSTR":   s.handleGetRange,
		"SETRANGE": s.handleSetRange,
		"MGET":     s.handleMGet,
		"MSET":     s.handleMSet,
		"MSETNX":   s.handleMSetNX,
		"INCR":     s.handleIncr,
		"DECR":     s.handleDecr,
		"INCRBY":   s.handleIncrBy,
		"DECRBY":   s.handleDecrBy,

		// lists
		"LLEN":   s.handleLLen,
		"LRANGE": s.handleLRange,
		"LINDEX": s.handleLIndex,
		"LSET":   s.handleLSet,
		"LPUSH":  s.handleLPush,
		"RPUSH":  s.handleRPush,
		"LPUSHX": s.handleLPushX,
		"RPUSHX": s.handleRPushX,
		"LPOP":   s.handleLPop,
		"RPOP":   s.handleRPop,

		// hashes
		"HLEN":     s.handleHLen,
		"HGETALL":  s.handleHGetAll,
		"HGET":     s.handleHGet,
		"HEXISTS":  s.handleHExists,
		"HSTRLEN":  s.handleHStrLen,
		"HKEYS":    s.handleHKeys,
		"HVALS":    s.handleHVals,
		"HSET":     s.handleHSet,
		"HSETNX":   s.handleHSetNX,
		"HINCRBY":  s.handleHIncrBy,
		"HMSET":    s.handleHMSet,
		"HMGET":    s.handleHMGet,
		"HDEL":     s.handleHDel,

		// sets
		"SCARD":       s.handleSCard,
		"SMEMBERS":    s.handleSMembers,
		"SISMEMBER":   s.handleSIsMember,
		"SADD":        s.handleSAdd,
		"SREM":        s.handleSRem,
		"SDIFF":       s.handleSDiff,
		"SINTER":      s.handleSInter,
		"SUNION":      s.handleSUnion,
		"SDIFFSTORE":  s.handleSDiffStore,
		"SINTERSTORE": s.handleSInterStore,
		"SUNIONSTORE": s.handleSUnionStore,

		// pub/sub
		"PUBLISH":      s.handlePublish,
		"SUBSCRIBE":    s.handleSubscribe,
		"UNSUBSCRIBE":  s.handleUnsubscribe,
		"PSUBSCRIBE":   s.handlePSubscribe,
		"PUNSUBSCRIBE": s.handlePUnsubscribe,
		"PUBSUB":       s.handlePubSub,
	} {
		_ = s.RegisterCommandFunc(name, fn)
	}
}
