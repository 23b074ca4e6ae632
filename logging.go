package redkit

import "go.uber.org/zap"

// ZapLogger is the structured logger set on Config.Logger and handed to
// the snapshot manager, which logs saves and loads through it. Server
// bootstrap and shutdown lines go through Server.ErrorLog instead, and
// the pub/sub bus does not log.
type ZapLogger = zap.SugaredLogger

// newDefaultLogger builds a production zap logger; callers that want
// development-friendly console output can build their own and set it
// on Config.Logger before calling NewServerWithConfig.
func newDefaultLogger() *ZapLogger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func nopLogger() *ZapLogger { return zap.NewNop().Sugar() }
