package redkit

import (
	"strconv"
	"strings"
	"time"
)

func (s *Server) handleGet(conn *Connection, cmd *Command) RedisValue {
	b, ok, err := s.dbs.GetString(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	if !ok {
		return RedisValue{Type: Null}
	}
	return RedisValue{Type: BulkString, Bulk: b}
}

// handleSet implements SET with the NX/XX/EX/PX/KEEPTTL option family
// (spec.md §4.8). NX and XX are mutually exclusive; EX/PX/KEEPTTL are
// mutually exclusive with each other.
func (s *Server) handleSet(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) < 2 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	key, val := cmd.Args[0], []byte(cmd.Args[1])

	var nx, xx, keepTTL bool
	var expireAt *time.Time

	for i := 2; i < len(cmd.Args); i++ {
		switch strings.ToUpper(cmd.Args[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "KEEPTTL":
			keepTTL = true
		case "EX", "PX":
			if expireAt != nil {
				return toRESPValue(errSyntax())
			}
			isMillis := strings.ToUpper(cmd.Args[i]) == "PX"
			i++
			if i >= len(cmd.Args) {
				return toRESPValue(errSyntax())
			}
			n, perr := strconv.ParseInt(cmd.Args[i], 10, 64)
			if perr != nil {
				return toRESPValue(errNotInteger())
			}
			var t time.Time
			if isMillis {
				t = time.Now().Add(time.Duration(n) * time.Millisecond)
			} else {
				t = time.Now().Add(time.Duration(n) * time.Second)
			}
			expireAt = &t
		default:
			return toRESPValue(errSyntax())
		}
	}
	if (nx && xx) || (keepTTL && expireAt != nil) {
		return toRESPValue(errSyntax())
	}

	if nx || xx {
		exists, err := s.dbs.Exists(conn.DBIndex(), key)
		if err != nil {
			return toRESPValue(err)
		}
		if nx && exists > 0 {
			return RedisValue{Type: Null}
		}
		if xx && exists == 0 {
			return RedisValue{Type: Null}
		}
	}

	if err := s.dbs.SetString(conn.DBIndex(), key, val, expireAt, keepTTL); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleSetNX(conn *Connection, cmd *Command) RedisValue {
	exists, err := s.dbs.Exists(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	if exists > 0 {
		return RedisValue{Type: Integer, Int: 0}
	}
	if err := s.dbs.SetString(conn.DBIndex(), cmd.Args[0], []byte(cmd.Args[1]), nil, false); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: 1}
}

func (s *Server) handleSetEX(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	t := time.Now().Add(time.Duration(n) * time.Second)
	if err := s.dbs.SetString(conn.DBIndex(), cmd.Args[0], []byte(cmd.Args[2]), &t, false); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handlePSetEX(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	t := time.Now().Add(time.Duration(n) * time.Millisecond)
	if err := s.dbs.SetString(conn.DBIndex(), cmd.Args[0], []byte(cmd.Args[2]), &t, false); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleGetSet(conn *Connection, cmd *Command) RedisValue {
	old, had, err := s.dbs.GetSet(conn.DBIndex(), cmd.Args[0], []byte(cmd.Args[1]))
	if err != nil {
		return toRESPValue(err)
	}
	if !had {
		return RedisValue{Type: Null}
	}
	return RedisValue{Type: BulkString, Bulk: old}
}

func (s *Server) handleAppend(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.Append(conn.DBIndex(), cmd.Args[0], []byte(cmd.Args[1]))
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleStrLen(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.StrLen(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleGetRange(conn *Connection, cmd *Command) RedisValue {
	start, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	end, err := strconv.Atoi(cmd.Args[2])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	b, err := s.dbs.GetRange(conn.DBIndex(), cmd.Args[0], start, end)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: BulkString, Bulk: b}
}

func (s *Server) handleSetRange(conn *Connection, cmd *Command) RedisValue {
	offset, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	if offset < 0 {
		return toRESPValue(newCommandError(codeErr, "offset is out of range"))
	}
	n, err := s.dbs.SetRange(conn.DBIndex(), cmd.Args[0], offset, []byte(cmd.Args[2]))
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleMGet(conn *Connection, cmd *Command) RedisValue {
	out := make([]RedisValue, len(cmd.Args))
	for i, k := range cmd.Args {
		b, ok, err := s.dbs.GetString(conn.DBIndex(), k)
		if err != nil || !ok {
			out[i] = RedisValue{Type: Null}
			continue
		}
		out[i] = RedisValue{Type: BulkString, Bulk: b}
	}
	return RedisValue{Type: Array, Array: out}
}

func (s *Server) handleMSet(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args)%2 != 0 || len(cmd.Args) == 0 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		if err := s.dbs.SetString(conn.DBIndex(), cmd.Args[i], []byte(cmd.Args[i+1]), nil, false); err != nil {
			return toRESPValue(err)
		}
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleMSetNX(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args)%2 != 0 || len(cmd.Args) == 0 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		exists, err := s.dbs.Exists(conn.DBIndex(), cmd.Args[i])
		if err != nil {
			return toRESPValue(err)
		}
		if exists > 0 {
			return RedisValue{Type: Integer, Int: 0}
		}
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		_ = s.dbs.SetString(conn.DBIndex(), cmd.Args[i], []byte(cmd.Args[i+1]), nil, false)
	}
	return RedisValue{Type: Integer, Int: 1}
}

func (s *Server) handleIncr(conn *Connection, cmd *Command) RedisValue {
	return s.incrByHandler(conn, cmd.Args[0], 1)
}

func (s *Server) handleDecr(conn *Connection, cmd *Command) RedisValue {
	return s.incrByHandler(conn, cmd.Args[0], -1)
}

func (s *Server) handleIncrBy(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	return s.incrByHandler(conn, cmd.Args[0], n)
}

func (s *Server) handleDecrBy(conn *Connection, cmd *Command) RedisValue {
	n, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return toRESPValue(errNotInteger())
	}
	return s.incrByHandler(conn, cmd.Args[0], -n)
}

func (s *Server) incrByHandler(conn *Connection, key string, delta int64) RedisValue {
	n, err := s.dbs.IncrBy(conn.DBIndex(), key, delta)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: n}
}
