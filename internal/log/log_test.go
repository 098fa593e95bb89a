package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/treefix50/reelrange/internal/log"
)

func TestAddTags(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	require.NoError(t, log.Setup(buf, "info"))

	ctx := log.AddTags(context.Background(), "request_id", "abc")
	ctx = log.AddTags(ctx, "video", "clip.mp4")
	log.Infow(ctx, "stream started", "start", 0)

	out := buf.String()
	require.Contains(t, out, `msg="stream started"`)
	require.Contains(t, out, "request_id=abc")
	require.Contains(t, out, "video=clip.mp4")
	require.Contains(t, out, "start=0")
}

func TestAddTagsOddArguments(t *testing.T) {
	require.Panics(t, func() {
		log.AddTags(context.Background(), "orphan")
	})
}

func TestLevelFiltering(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	require.NoError(t, log.Setup(buf, "warn"))

	ctx := context.Background()
	log.Infof(ctx, "hidden %d", 1)
	log.Debugf(ctx, "hidden %d", 2)
	log.Warnf(ctx, "shown %d", 3)
	log.Errorf(ctx, "shown %d", 4)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `msg="shown 3"`)
	require.Contains(t, out, `msg="shown 4"`)
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
		ok       bool
	}{
		{"", slog.LevelInfo, true},
		{"DEBUG", slog.LevelDebug, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			lvl, err := log.ParseLevel(c.input)
			if !c.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, lvl)
		})
	}
}
