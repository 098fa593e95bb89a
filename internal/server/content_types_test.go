package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentTypes(t *testing.T) {
	types := NewContentTypes("", map[string]string{"OGV": "video/ogg", ".mp4": "video/x-custom", "bad": " "})

	require.Equal(t, "video/ogg", types.Lookup("clip.ogv"))
	require.Equal(t, "video/x-custom", types.Lookup("clip.MP4"))
	require.Equal(t, "video/webm", types.Lookup("clip.webm"))
	require.Equal(t, "video/mp4", types.Lookup("clip"))
	require.Equal(t, "video/mp4", types.Lookup("notes.txt"))

	require.True(t, types.Known("a.MKV"))
	require.True(t, types.Known("a.ogv"))
	require.False(t, types.Known("a.bad"))
	require.False(t, types.Known("notes.txt"))
}

func TestContentTypesFallback(t *testing.T) {
	require.Equal(t, "application/octet-stream", NewContentTypes("application/octet-stream", nil).Lookup("clip.xyz"))
}

func TestNormalizeTextContentType(t *testing.T) {
	require.Equal(t, textContentType, normalizeTextContentType(""))
	require.Equal(t, "text/plain; charset=utf-8", normalizeTextContentType("text/plain"))
	require.Equal(t, "text/plain; charset=latin1", normalizeTextContentType("text/plain; charset=latin1"))
}
