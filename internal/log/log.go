package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Log lines are logfmt (`level=info msg="http request" method=GET ...`).
// Tags added to a context with AddTags are appended to every line logged
// with that context, which is how request IDs reach the stream handlers.

type contextKey int

const (
	tagsKey contextKey = iota
)

// Setup installs a logfmt handler writing to w as the process default.
func Setup(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log: unknown level %q", level)
	}
}

// AddTags returns a context whose log lines carry the given key-value pairs.
func AddTags(ctx context.Context, kvs ...any) context.Context {
	if len(kvs)%2 != 0 {
		panic("log: AddTags requires an even number of arguments")
	}
	existing := fromContext(ctx)
	tags := make([]any, 0, len(existing)+len(kvs))
	tags = append(tags, existing...)
	tags = append(tags, kvs...)
	return context.WithValue(ctx, tagsKey, tags)
}

func fromContext(ctx context.Context) []any {
	tags, _ := ctx.Value(tagsKey).([]any)
	return tags
}

func emit(ctx context.Context, level slog.Level, msg string, kvs []any) {
	logger := slog.Default()
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(fromContext(ctx)...)
	r.Add(kvs...)
	_ = logger.Handler().Handle(ctx, r)
}

func Infof(ctx context.Context, format string, args ...any) {
	emit(ctx, slog.LevelInfo, fmt.Sprintf(format, args...), nil)
}

func Warnf(ctx context.Context, format string, args ...any) {
	emit(ctx, slog.LevelWarn, fmt.Sprintf(format, args...), nil)
}

func Errorf(ctx context.Context, format string, args ...any) {
	emit(ctx, slog.LevelError, fmt.Sprintf(format, args...), nil)
}

func Debugf(ctx context.Context, format string, args ...any) {
	emit(ctx, slog.LevelDebug, fmt.Sprintf(format, args...), nil)
}

// Infow logs msg with an even-length list of key-value pairs.
func Infow(ctx context.Context, msg string, kvs ...any) {
	emit(ctx, slog.LevelInfo, msg, kvs)
}

func Warnw(ctx context.Context, msg string, kvs ...any) {
	emit(ctx, slog.LevelWarn, msg, kvs)
}

func Errorw(ctx context.Context, msg string, kvs ...any) {
	emit(ctx, slog.LevelError, msg, kvs)
}
