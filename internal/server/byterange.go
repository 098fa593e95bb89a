package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange     = errors.New("malformed range")
	ErrUnsatisfiableRange = errors.New("unsatisfiable range")
)

// ByteRange is an inclusive interval of byte offsets.
type ByteRange struct {
	Start int64
	End   int64
}

func (b ByteRange) Length() int64 { return b.End - b.Start + 1 }

// ContentRange formats the Content-Range value of a 206 response.
func (b ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.Start, b.End, size)
}

// RangeError reports why a Range header could not be served.
type RangeError struct {
	Header string
	Start  int64
	Size   int64
	Err    error
}

func (e *RangeError) Error() string {
	if errors.Is(e.Err, ErrUnsatisfiableRange) {
		return fmt.Sprintf("%d >= %d", e.Start, e.Size)
	}
	return fmt.Sprintf("invalid range %q for size %d", e.Header, e.Size)
}

func (e *RangeError) Unwrap() error { return e.Err }

// ParseRange resolves a single "bytes=<start>-[<end>]" range against a
// resource of the given size. A missing end means the last byte and an end
// past the last byte is clamped to it. Suffix ranges ("bytes=-N") and
// multiple ranges are rejected as malformed. A start at or beyond size is
// unsatisfiable, which makes every range on an empty resource unsatisfiable.
func ParseRange(header string, size int64) (ByteRange, error) {
	malformed := &RangeError{Header: header, Size: size, Err: ErrMalformedRange}

	set, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(set, ",") {
		return ByteRange{}, malformed
	}
	startPart, endPart, ok := strings.Cut(set, "-")
	if !ok {
		return ByteRange{}, malformed
	}

	start, ok := parseOffset(startPart)
	if !ok {
		return ByteRange{}, malformed
	}
	end := size - 1
	if endPart != "" {
		if end, ok = parseOffset(endPart); !ok || end < start {
			return ByteRange{}, malformed
		}
	}

	if start >= size {
		return ByteRange{}, &RangeError{Header: header, Start: start, Size: size, Err: ErrUnsatisfiableRange}
	}
	if end >= size {
		end = size - 1
	}
	return ByteRange{Start: start, End: end}, nil
}

// parseOffset accepts only unsigned decimal digits.
func parseOffset(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
