package server

import (
	"path/filepath"
	"strings"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	textContentType = "text/plain; charset=utf-8"
)

var defaultVideoTypes = map[string]string{
	".avi":  "video/x-msvideo",
	".m2ts": "video/mp2t",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".ts":   "video/mp2t",
	".webm": "video/webm",
}

// ContentTypes picks the Content-Type of a stored video from its extension.
type ContentTypes struct {
	fallback string
	byExt    map[string]string
}

// NewContentTypes returns the built-in video table. Names with an unknown
// extension are served as fallback. Overrides are keyed by extension with
// or without the leading dot.
func NewContentTypes(fallback string, overrides map[string]string) *ContentTypes {
	byExt := make(map[string]string, len(defaultVideoTypes)+len(overrides))
	for ext, ct := range defaultVideoTypes {
		byExt[ext] = ct
	}
	for ext, ct := range overrides {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || strings.TrimSpace(ct) == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		byExt[ext] = ct
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = "video/mp4"
	}
	return &ContentTypes{fallback: fallback, byExt: byExt}
}

func (c *ContentTypes) Lookup(name string) string {
	if ct, ok := c.byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return c.fallback
}

// Known reports whether name has a video extension in the table.
func (c *ContentTypes) Known(name string) bool {
	_, ok := c.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

func normalizeTextContentType(contentType string) string {
	if contentType == "" {
		return textContentType
	}
	if strings.Contains(strings.ToLower(contentType), "charset=") {
		return contentType
	}
	return contentType + "; charset=utf-8"
}
