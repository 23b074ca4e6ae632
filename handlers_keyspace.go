package redkit

import (
	"github.com/l00pss/redkit/internal/pattern"
)

// handleKeys implements KEYS pattern, restricted to the five shapes
// internal/pattern supports (spec.md §4.2). An unsupported glob feature
// surfaces as a RESP error rather than a silent partial match.
func (s *Server) handleKeys(conn *Connection, cmd *Command) RedisValue {
	p, err := pattern.Compile(cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	keys, err := s.dbs.Keys(conn.DBIndex(), p)
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, len(keys))
	for i, k := range keys {
		out[i] = RedisValue{Type: BulkString, Bulk: []byte(k)}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleExists(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.Exists(conn.DBIndex(), cmd.Args...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleDel(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.Del(conn.DBIndex(), cmd.Args...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleType(conn *Connection, cmd *Command) RedisValue {
	k, ok, err := s.dbs.TypeOf(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	if !ok {
		return RedisValue{Type: SimpleString, Str: "none"}
	}
	return RedisValue{Type: SimpleString, Str: k.String()}
}

func (s *Server) handleRename(conn *Connection, cmd *Command) RedisValue {
	if err := s.dbs.Rename(conn.DBIndex(), cmd.Args[0], cmd.Args[1]); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleRenameNX(conn *Connection, cmd *Command) RedisValue {
	ok, err := s.dbs.RenameNX(conn.DBIndex(), cmd.Args[0], cmd.Args[1])
	if err != nil {
		return toRESPValue(err)
	}
	n := int64(0)
	if ok {
		n = 1
	}
	return RedisValue{Type: Integer, Int: n}
}

func (s *Server) handleDBSize(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.DBSize(conn.DBIndex())
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}
