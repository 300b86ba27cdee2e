package conceptual

import (
	"regexp"
	"strings"
)

// TraceID names a trace, eg. a device or a session.
// It doubles as a directory name, so it should be sanitized.
type TraceID string

func (t TraceID) String() string {
	return string(t)
}

func (t TraceID) Empty() bool {
	return t == ""
}

var traceIDUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeTraceID lowercases the name and replaces runs of
// path-unsafe characters with a single dash.
func SanitizeTraceID(name string) TraceID {
	s := strings.ToLower(strings.TrimSpace(name))
	s = traceIDUnsafe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	return TraceID(s)
}
