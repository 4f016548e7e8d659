package core

// Logger is the application-wide logging side channel. Implementations may
// forward to an error tracker in addition to writing locally; args may carry
// errors or an auth.Actor for context.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
