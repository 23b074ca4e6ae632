package redkit

import (
	"strconv"
	"time"
)

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (s *Server) expireSeconds(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	deadline := time.Now().Add(time.Duration(n) * time.Second)
	ok, err := s.dbs.SetExpireAt(conn.DBIndex(), cmd.Args[0], deadline)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handleExpire(conn *Connection, cmd *Command) RedisValue {
	return s.expireSeconds(conn, cmd)
}

func (s *Server) handlePExpire(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	deadline := time.Now().Add(time.Duration(n) * time.Millisecond)
	ok, err := s.dbs.SetExpireAt(conn.DBIndex(), cmd.Args[0], deadline)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handleExpireAt(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	deadline := time.Unix(n, 0)
	ok, err := s.dbs.SetExpireAt(conn.DBIndex(), cmd.Args[0], deadline)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handlePExpireAt(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	deadline := time.UnixMilli(n)
	ok, err := s.dbs.SetExpireAt(conn.DBIndex(), cmd.Args[0], deadline)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

// handleTTL reports remaining time-to-live in whole seconds, rounding
// up so a key with 1ms left still reads as 1 rather than 0 (spec.md §4.4).
func (s *Server) handleTTL(conn *Connection, cmd *Command) RedisValue {
	ms, err := s.dbs.TTLMillis(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	if ms < 0 {
		return RedisValue{Type: Integer, Int: ms}
	}
	secs := (ms + 999) / 1000
	return RedisValue{Type: Integer, Int: secs}
}

func (s *Server) handlePTTL(conn *Connection, cmd *Command) RedisValue {
	ms, err := s.dbs.TTLMillis(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: ms}
}

func (s *Server) handlePersist(conn *Connection, cmd *Command) RedisValue {
	ok, err := s.dbs.Persist(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}
