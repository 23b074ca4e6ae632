package redkit

import (
	"strconv"
	"strings"

	"github.com/l00pss/redkit/internal/dispatch"
	"github.com/l00pss/redkit/internal/store"
)

func handlePing(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) > 0 {
		return RedisValue{Type: BulkString, Bulk: []byte(cmd.Args[0])}
	}
	return RedisValue{Type: SimpleString, Str: "PONG"}
}

func handleEcho(conn *Connection, cmd *Command) RedisValue {
	return RedisValue{Type: BulkString, Bulk: []byte(cmd.Args[0])}
}

// handleQuit replies OK; the connection is closed by the read loop once
// the reply is flushed, not here, so the client always sees its reply.
func handleQuit(conn *Connection, cmd *Command) RedisValue {
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleSelect(conn *Connection, cmd *Command) RedisValue {
	idx, ok := store.ParseInt([]byte(cmd.Args[0]))
	if !ok {
		return toRESPValue(errNotInteger())
	}
	if idx < 0 || idx >= store.NumDatabases {
		return toRESPValue(errDBIndexOutOfRange())
	}
	conn.setDBIndex(int(idx))
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleSwapDB(conn *Connection, cmd *Command) RedisValue {
	i, ok1 := store.ParseInt([]byte(cmd.Args[0]))
	j, ok2 := store.ParseInt([]byte(cmd.Args[1]))
	if !ok1 || !ok2 {
		return toRESPValue(errNotInteger())
	}
	if err := s.dbs.SwapDB(int(i), int(j)); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

// handleMonitor flips the connection into monitor mode: from then on
// fanOutMonitor pushes it a line for every command other connections
// run, while it keeps processing its own commands as before.
func (s *Server) handleMonitor(conn *Connection, cmd *Command) RedisValue {
	conn.monitoring.Store(true)
	s.monitorCount.Add(1)
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleSave(conn *Connection, cmd *Command) RedisValue {
	if err := s.Save(); err != nil {
		return toRESPValue(err)
	}
	return RedisValue{Type: SimpleString, Str: "OK"}
}

func (s *Server) handleBgSave(conn *Connection, cmd *Command) RedisValue {
	s.BGSave()
	return RedisValue{Type: SimpleString, Str: "Background saving started"}
}

func (s *Server) handleLastSave(conn *Connection, cmd *Command) RedisValue {
	return RedisValue{Type: Integer, Int: s.LastSaveUnix()}
}

// handleCommandIntrospect implements COMMAND (full table dump) and
// COMMAND COUNT; other subcommands aren't part of this server's surface.
func (s *Server) handleCommandIntrospect(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) > 0 && strings.EqualFold(cmd.Args[0], "COUNT") {
		return RedisValue{Type: Integer, Int: int64(s.table.Count())}
	}
	var out []RedisValue
	s.table.Each(func(row dispatch.Command) {
		flags := make([]RedisValue, 0, len(row.Flags.Names()))
		for _, name := range row.Flags.Names() {
			flags = append(flags, RedisValue{Type: SimpleString, Str: name})
		}
		out = append(out, RedisValue{Type: Array, Array: []RedisValue{
			{Type: BulkString, Bulk: []byte(strings.ToLower(row.Name))},
			{Type: Integer, Int: int64(row.ArityRule.RedisEncoded())},
			{Type: Array, Array: flags},
			{Type: Integer, Int: int64(row.FirstKey)},
			{Type: Integer, Int: int64(row.LastKey)},
			{Type: Integer, Int: int64(row.Step)},
		}})
	})
	return RedisValue{Type: Array, Array: out}
}

// handleClient implements CLIENT SETNAME/GETNAME/LIST/ID.
func (s *Server) handleClient(conn *Connection, cmd *Command) RedisValue {
	if len(cmd.Args) == 0 {
		return toRESPValue(errWrongArgs(cmd.Name))
	}
	switch strings.ToUpper(cmd.Args[0]) {
	case "SETNAME":
		if len(cmd.Args) < 2 {
			return toRESPValue(errWrongArgs(cmd.Name))
		}
		conn.setName(cmd.Args[1])
		return RedisValue{Type: SimpleString, Str: "OK"}
	case "GETNAME":
		return RedisValue{Type: BulkString, Bulk: []byte(conn.Name())}
	case "ID":
		return RedisValue{Type: Integer, Int: int64(conn.ID())}
	case "LIST":
		return RedisValue{Type: BulkString, Bulk: []byte(s.formatClientList())}
	default:
		return toRESPValue(newCommandError(codeErr, "unknown CLIENT subcommand"))
	}
}

func (s *Server) formatClientList() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for _, c := range s.clients {
		b.WriteString("id=")
		b.WriteString(strconv.FormatInt(int64(c.ID()), 10))
		b.WriteString(" addr=")
		b.WriteString(c.RemoteAddr().String())
		b.WriteString(" db=")
		b.WriteString(strconv.Itoa(c.DBIndex()))
		b.WriteString(" name=")
		b.WriteString(c.Name())
		b.WriteString("\n")
	}
	return b.String()
}
