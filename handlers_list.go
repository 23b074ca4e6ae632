package redkit

import "strconv"

func (s *Server) handleLLen(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.LLen(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleLRange(conn *Connection, cmd *Command) RedisValue {
	start, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	stop, err := strconv.Atoi(cmd.Args[2])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	items, err := s.dbs.LRange(conn.DBIndex(), cmd.Args[0], start, stop)
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, len(items))
	for i, it := range items {
		out[i] = RedisValue{Type: BulkString, Bulk: it}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleLIndex(conn *Connection, cmd *Command) RedisValue {
	i, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	b, ok, err := s.dbs.LIndex(conn.DBIndex(), cmd.Args[0], i)
	if err != nil {
		return toRESPValue(err)
	}
	if !ok {
		return RedisValue{Type: Null}
	}
	return RedisValue{Type: BulkString, Bulk: b}
}

func (s *Server) handleLSet(conn *Connection, cmd *Command) RedisValue {
	i, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	if err := s.dbs.LSet(conn.DBIndex(), cmd.Args[0], i, []byte(cmd.Args[2])); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleLPush(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.LPush(conn.DBIndex(), cmd.Args[0], byteArgs(cmd.Args[1:])...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleRPush(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.RPush(conn.DBIndex(), cmd.Args[0], byteArgs(cmd.Args[1:])...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleLPushX(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.LPushX(conn.DBIndex(), cmd.Args[0], byteArgs(cmd.Args[1:])...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleRPushX(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.RPushX(conn.DBIndex(), cmd.Args[0], byteArgs(cmd.Args[1:])...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleLPop(conn *Connection, cmd *Command) RedisValue {
	count := 1
	multi := false
	if len(cmd.Args) > 1 {
		n, err := strconv.Atoi(cmd.Args[1])
		if err != nil {
			return toRESPValue(errNotInteger())
		}
		count, multi = n, true
	}
	out, err := s.dbs.LPop(conn.DBIndex(), cmd.Args[0], count)
	if err != nil {
		return toRESPValue(err)
	}
	return popReply(out, multi)
}

func (s *Server) handleRPop(conn *Connection, cmd *Command) RedisValue {
	count := 1
	multi := false
	if len(cmd.Args) > 1 {
		n, err := strconv.Atoi(cmd.Args[1])
		if err != nil {
			return toRESPValue(errNotInteger())
		}
		count, multi = n, true
	}
	out, err := s.dbs.RPop(conn.DBIndex(), cmd.Args[0], count)
	if err != nil {
		return toRESPValue(err)
	}
	return popReply(out, multi)
}

// popReply renders LPOP/RPOP's result: a single bulk string (or null)
// without a COUNT argument, an array (possibly empty, never null) when
// COUNT was given explicitly.
func popReply(items [][]byte, multi bool) RedisValue {
	if !multi {
		if len(items) == 0 {
			return RedisValue{Type: Null}
		}
		return RedisValue{Type: BulkString, Bulk: items[0]}
	}
	out := make([]RedisValue, len(items))
	for i, it := range items {
		out[i] = RedisValue{Type: BulkString, Bulk: it}
	}
	return RedisValue{Type: Array, Array: out}
}

func byteArgs(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
