package redkit

import "sync"

// MiddlewareFunc wraps a command invocation, given the handler chain's
// next link. Grounded on the teacher's example/main.go usage
// (server.UseFunc(func(conn, cmd, next) RedisValue {...})), which
// referenced a MiddlewareChain/MiddlewareFunc pair the shipped teacher
// package never actually defined — this file fills that gap.
type MiddlewareFunc func(conn *Connection, cmd *Command, next CommandHandler) RedisValue

// MiddlewareChain holds an ordered list of middleware, applied
// outermost-first: the first added wraps everything after it.
type MiddlewareChain struct {
	mu    sync.RWMutex
	funcs []MiddlewareFunc
}

// NewMiddlewareChain builds an empty chain.
func NewMiddlewareChain() *MiddlewareChain {
	return &MiddlewareChain{}
}

// Add appends a middleware to the chain.
func (c *MiddlewareChain) Add(f MiddlewareFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, f)
}

// Execute builds the wrapped handler chain and invokes it against final.
func (c *MiddlewareChain) Execute(conn *Connection, cmd *Command, final CommandHandler) RedisValue {
	c.mu.RLock()
	funcs := make([]MiddlewareFunc, len(c.funcs))
	copy(funcs, c.funcs)
	c.mu.RUnlock()

	next := final
	for i := len(funcs) - 1; i >= 0; i-- {
		mw := funcs[i]
		prevNext := next
		next = CommandHandlerFunc(func(conn *Connection, cmd *Command) RedisValue {
			return mw(conn, cmd, prevNext)
		})
	}
	return next.Handle(conn, cmd)
}

// Use registers a struct-based middleware built from a MiddlewareFunc.
func (s *Server) Use(f MiddlewareFunc) {
	s.chain.Add(f)
}

// UseFunc is an alias for Use kept for parity with RegisterCommandFunc's
// naming convention elsewhere in this package.
func (s *Server) UseFunc(f func(conn *Connection, cmd *Command, next CommandHandler) RedisValue) {
	s.chain.Add(MiddlewareFunc(f))
}
