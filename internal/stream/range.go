// Package stream serves audio files over HTTP with byte-range seek support.
package stream

import (
	"regexp"
	"strconv"
)

// Only the single-range form is accepted. Multi-range requests and anything
// else that fails this pattern degrade to a full-content response rather
// than a 4xx.
var rangeRegex = regexp.MustCompile(`^bytes=(\d+)-(\d+)?$`)

// ByteRange is a parsed Range header. End is nil when the client asked for
// everything from Start to the end of the file.
type ByteRange struct {
	Start uint64
	End   *uint64
}

// ParseRange parses an HTTP Range header value. ok is false for malformed
// headers, multi-range requests, and reversed bounds.
func ParseRange(header string) (ByteRange, bool) {
	matches := rangeRegex.FindStringSubmatch(header)
	if matches == nil {
		return ByteRange{}, false
	}

	start, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return ByteRange{}, false
	}

	br := ByteRange{Start: start}
	if matches[2] != "" {
		end, err := strconv.ParseUint(matches[2], 10, 64)
		if err != nil || end < start {
			return ByteRange{}, false
		}
		br.End = &end
	}
	return br, true
}
