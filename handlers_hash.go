package redkit

import "strconv"

func (s *Server) handleHLen(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.HLen(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleHGetAll(conn *Connection, cmd *Command) RedisValue {
	h, err := s.dbs.HGetAll(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, 0, len(h)*2)
	for f, v := range h {
		out = append(out, RedisValue{Type: BulkString, Bulk: []byte(f)}, RedisValue{Type: BulkString, Bulk: v})
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleHGet(conn *Connection, cmd *Command) RedisValue {
	b, ok, err := s.dbs.HGet(conn.DBIndex(), cmd.Args[0], cmd.Args[1])
	if err != nil {
		return toRESPValue(err)
	}
	if !ok {
		return RedisValue{Type: Null}
	}
	return RedisValue{Type: BulkString, Bulk: b}
}

func (s *Server) handleHExists(conn *Connection, cmd *Command) RedisValue {
	ok, err := s.dbs.HExists(conn.DBIndex(), cmd.Args[0], cmd.Args[1])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handleHStrLen(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.HStrLen(conn.DBIndex(), cmd.Args[0], cmd.Args[1])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleHKeys(conn *Connection, cmd *Command) RedisValue {
	keys, err := s.dbs.HKeys(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, len(keys))
	for i, k := range keys {
		out[i] = RedisValue{Type: BulkString, Bulk: []byte(k)}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleHVals(conn *Connection, cmd *Command) RedisValue {
	vals, err := s.dbs.HVals(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, len(vals))
	for i, v := range vals {
		out[i] = RedisValue{Type: BulkString, Bulk: v}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleHSet(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) < 3 || len(cmd.Args)%2 != 1 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	var created int64
	for i := 1; i < len(cmd.Args); i += 2 {
		isNew, err := s.dbs.HSet(conn.DBIndex(), cmd.Args[0], cmd.Args[i], []byte(cmd.Args[i+1]))
		if err != nil {
			return toRESPValue(err)
		}
		if isNew {
			created++
		}
	}
	return RedisValue{Type: Integer, Int: created}
}

func (s *Server) handleHSetNX(conn *Connection, cmd *Command) RedisValue {
	ok, err := s.dbs.HSetNX(conn.DBIndex(), cmd.Args[0], cmd.Args[1], []byte(cmd.Args[2]))
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handleHIncrBy(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[2], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	result, err := s.dbs.HIncrBy(conn.DBIndex(), cmd.Args[0], cmd.Args[1], n)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: result}
}

func (s *Server) handleHMSet(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) < 3 || len(cmd.Args)%2 != 1 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	pairs := make([][2]string, 0, (len(cmd.Args)-1)/2)
	for i := 1; i < len(cmd.Args); i += 2 {
		pairs = append(pairs, [2]string{cmd.Args[i], cmd.Args[i+1]})
	}
	if err := s.dbs.HMSet(conn.DBIndex(), cmd.Args[0], pairs); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleHMGet(conn *Connection, cmd *Command) RedisValue {
	vals, err := s.dbs.HMGet(conn.DBIndex(), cmd.Args[0], cmd.Args[1:])
	if err != nil {
		return toRESPValue(err)
	}
	out := make([]RedisValue, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = RedisValue{Type: Null}
		} else {
			out[i] = RedisValue{Type: BulkString, Bulk: v}
		}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleHDel(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.HDel(conn.DBIndex(), cmd.Args[0], cmd.Args[1:]...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}
