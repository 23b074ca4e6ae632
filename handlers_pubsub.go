package redkit

import "strings"

func (s *Server) handlePublish(conn *Connection, cmd *Command) RedisValue {
	n := s.pubsub.Publish(cmd.Args[0], cmd.Args[1])
	return RedisValue{Type: Integer, Int: int64(n)}
}

func (s *Server) handleSubscribe(conn *Connection, cmd *Command) RedisValue {
	var lastCount int
	for _, ch := range cmd.Args {
		lastCount = s.pubsub.Subscribe(conn, ch)
		conn.writeAsync(subAck("subscribe", ch, lastCount))
	}
	return RedisValue{Type: NoReply}
}

func (s *Server) handleUnsubscribe(conn *Connection, cmd *Command) RedisValue {
	channels := cmd.Args
	if len(channels) == 0 {
		conn.subMu.Lock()
		for ch := range conn.subs {
			channels = append(channels, ch)
		}
		conn.subMu.Unlock()
	}
	if len(channels) == 0 {
		conn.writeAsync(subAck("unsubscribe", "", conn.subscriptionCount()))
		return RedisValue{Type: NoReply}
	}
	for _, ch := range channels {
		n := s.pubsub.Unsubscribe(conn, ch)
		conn.writeAsync(subAck("unsubscribe", ch, n))
	}
	return RedisValue{Type: NoReply}
}

func (s *Server) handlePSubscribe(conn *Connection, cmd *Command) RedisValue {
	var lastCount int
	for _, pat := range cmd.Args {
		lastCount = s.pubsub.PSubscribe(conn, pat)
		conn.writeAsync(subAck("psubscribe", pat, lastCount))
	}
	return RedisValue{Type: NoReply}
}

func (s *Server) handlePUnsubscribe(conn *Connection, cmd *Command) RedisValue {
	patterns := cmd.Args
	if len(patterns) == 0 {
		conn.subMu.Lock()
		for p := range conn.psubs {
			patterns = append(patterns, p)
		}
		conn.subMu.Unlock()
	}
	if len(patterns) == 0 {
		conn.writeAsync(subAck("punsubscribe", "", conn.subscriptionCount()))
		return RedisValue{Type: NoReply}
	}
	for _, pat := range patterns {
		n := s.pubsub.PUnsubscribe(conn, pat)
		conn.writeAsync(subAck("punsubscribe", pat, n))
	}
	return RedisValue{Type: NoReply}
}

// subAck renders the confirmation array SUBSCRIBE/UNSUBSCRIBE and their
// pattern variants push per successful (un)subscription, per spec.md §4.9.
func subAck(kind, channel string, count int) RedisValue {
	var chVal RedisValue
	if channel == "" {
		chVal = RedisValue{Type: Null}
	} else {
		chVal = RedisValue{Type: BulkString, Bulk: []byte(channel)}
	}
	return RedisValue{Type: Array, Array: []RedisValue{
		{Type: BulkString, Bulk: []byte(kind)},
		chVal,
		{Type: Integer, Int: int64(count)},
	}}
}

// handlePubSub implements PUBSUB CHANNELS [pattern] | NUMSUB [channel...] | NUMPAT.
func (s *Server) handlePubSub(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) == 0 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	switch strings.ToUpper(cmd.Args[0]) {
	case "CHANNELS":
		filter := ""
		if len(cmd.Args) > 1 {
			filter = cmd.Args[1]
		}
		return stringArrayReply(s.pubsub.Channels(filter))
	case "NUMSUB":
		channels := cmd.Args[1:]
		counts := s.pubsub.NumSub(channels)
		out := make([]RedisValue, 0, len(channels)*2)
		for i, ch := range channels {
			out = append(out, RedisValue{Type: BulkString, Bulk: []byte(ch)}, RedisValue{Type: Integer, Int: int64(counts[i])})
		}
		return RedisValue{Type: Array, Array: out}
	case "NUMPAT":
		return RedisValue{Type: Integer, Int: int64(s.pubsub.NumPat())}
	default:
		return toRESPValue(newCommandError(codeErr, "unknown PUBSUB subcommand"))
	}
}
