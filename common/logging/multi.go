package logging

// MultiLogger fans a single log call out to several loggers, all at the
// same level. Used to mirror a component's logs into a per-component file
// in addition to the main log output.
type MultiLogger struct {
	loggers []*Logger
}

// NewMultiLogger creates a logger that dispatches every call to each of
// the given loggers in order.
func NewMultiLogger(loggers ...*Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Debug logs the message and key value pairs at the Debug log level.
func (m *MultiLogger) Debug(msg string, keyvals ...interface{}) {
	for _, l := range m.loggers {
		l.Debug(msg, keyvals...)
	}
}

// Info logs the message and key value pairs at the Info log level.
func (m *MultiLogger) Info(msg string, keyvals ...interface{}) {
	for _, l := range m.loggers {
		l.Info(msg, keyvals...)
	}
}

// Warn logs the message and key value pairs at the Warn log level.
func (m *MultiLogger) Warn(msg string, keyvals ...interface{}) {
	for _, l := range m.loggers {
		l.Warn(msg, keyvals...)
	}
}

// Error logs the message and key value pairs at the Error log level.
func (m *MultiLogger) Error(msg string, keyvals ...interface{}) {
	for _, l := range m.loggers {
		l.Error(msg, keyvals...)
	}
}
