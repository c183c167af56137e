// Package logging holds the structured logger every mediashare component
// receives at construction. Messages are lower-case event names; details go
// in key-value pairs, never into the message.
package logging

import "context"

// Logger writes leveled events. The context is passed through so request
// scoped handlers can pick values from it.
//
//	logger.Warn(ctx, "cleanup failed", "key", key, "error", err)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every event of the returned logger. Components use
	// it once to tag their output, e.g. With("module", "session").
	With(args ...any) Logger
}
