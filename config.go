package redkit

import (
	"time"

	"github.com/l00pss/redkit/internal/store"
)

// SavePoint mirrors the classic Redis "save <seconds> <changes>" rule:
// schedule a snapshot if at least ChangeThreshold writes have landed
// and Delay has elapsed since the last one (spec.md §3, §4.6).
type SavePoint struct {
	Delay           time.Duration
	ChangeThreshold int
}

// Config is the programmatic configuration surface spec.md §6 names:
// host/port, the dump file path, save points, and the logger, plus the
// connection timeouts and limit. It has no field for a command table or
// an event-loop group: the server always uses dispatch.DefaultTable and
// one goroutine per connection.
type Config struct {
	Host string
	Port int

	DBFilename string
	SavePoints []SavePoint

	Logger         *ZapLogger
	AlwaysShowLog  bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxConnections int
}

// DefaultConfig matches classic redis.conf defaults closely enough for
// development use: port 6379, one save point (900s, 1 change), a 30s/30s/120s timeout
// triad, and dump.json alongside the working directory.
func DefaultConfig() Config {
	return Config{
		Port:           6379,
		DBFilename:     "dump.json",
		SavePoints:     []SavePoint{{Delay: 900 * time.Second, ChangeThreshold: 1}},
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxConnections: 1000,
	}
}

func toStoreSavePoints(sps []SavePoint) []store.SavePoint {
	out := make([]store.SavePoint, len(sps))
	for i, sp := range sps {
		out[i] = store.SavePoint{Delay: sp.Delay, ChangeThreshold: sp.ChangeThreshold}
	}
	return out
}
