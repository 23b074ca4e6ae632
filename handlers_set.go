package redkit

func (s *Server) handleSCard(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SCard(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSMembers(conn *Connection, cmd *Command) RedisValue {
	members, err := s.dbs.SMembers(conn.DBIndex(), cmd.Args[0])
	if err != nil {
		return toRESPValue(err)
	}
	return stringArrayReply(members)
}

func (s *Server) handleSIsMember(conn *Connection, cmd *Command) RedisValue {
	ok, err := s.dbs.SIsMember(conn.DBIndex(), cmd.Args[0], cmd.Args[1])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: boolInt(ok)}
}

func (s *Server) handleSAdd(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SAdd(conn.DBIndex(), cmd.Args[0], cmd.Args[1:]...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSRem(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SRem(conn.DBIndex(), cmd.Args[0], cmd.Args[1:]...)
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSDiff(conn *Connection, cmd *Command) RedisValue {
	out, err := s.dbs.SDiff(conn.DBIndex(), cmd.Args)
	if err != nil {
		return toRESPValue(err)
	}
	return stringArrayReply(out)
}

func (s *Server) handleSInter(conn *Connection, cmd *Command) RedisValue {
	out, err := s.dbs.SInter(conn.DBIndex(), cmd.Args)
	if err != nil {
		return toRESPValue(err)
	}
	return stringArrayReply(out)
}

func (s *Server) handleSUnion(conn *Connection, cmd *Command) RedisValue {
	out, err := s.dbs.SUnion(conn.DBIndex(), cmd.Args)
	if err != nil {
		return toRESPValue(err)
	}
	return stringArrayReply(out)
}

func (s *Server) handleSDiffStore(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SDiffStore(conn.DBIndex(), cmd.Args[0], cmd.Args[1:])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSInterStore(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SInterStore(conn.DBIndex(), cmd.Args[0], cmd.Args[1:])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSUnionStore(conn *Connection, cmd *Command) RedisValue {
	n, err := s.dbs.SUnionStore(conn.DBIndex(), cmd.Args[0], cmd.Args[1:])
	if err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: Integer, Int: int64(n)}
}

func stringArrayReply(items []string) RedisValue {
	out := make([]RedisValue, len(items))
	for i, it := range items {
		out[i] = RedisValue{Type: BulkString, Bulk: []byte(it)}
	}
	return RedisValue{Type: Array, Array: out}
}
