package ports

// Logger is the printf-style logger the match sessions write to.
// runtime.Logger from nakama-common satisfies it, as does the zap adapter of the standalone server.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
