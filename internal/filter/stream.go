package filter

import "log/slog"

const (
	defaultMaxBuffer = 10000
	defaultKeepTail  = 1000
)

// Stream is the per-stream safety filter. It accumulates delivered text
// fragments so structured-data patterns split across fragment boundaries
// are still detected, and emits the full sanitized view on every call.
//
// A Stream belongs to exactly one text stream and must not be shared:
// fragments are assumed to arrive in order, one at a time. Discard the
// value when the stream closes; no flush step is needed.
type Stream struct {
	maxBuffer int
	keepTail  int
	logger    *slog.Logger
	buffer    string
}

// NewStream builds a filter with the given buffer ceiling and retained
// tail. Non-positive bounds fall back to the 10000/1000 defaults.
func NewStream(maxBuffer, keepTail int, logger *slog.Logger) *Stream {
	if maxBuffer <= 0 {
		maxBuffer = defaultMaxBuffer
	}
	if keepTail <= 0 || keepTail > maxBuffer {
		keepTail = defaultKeepTail
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{maxBuffer: maxBuffer, keepTail: keepTail, logger: logger}
}

// Process appends the fragment, redacts the whole accumulated buffer, and
// returns the sanitized view. When the buffer exceeds its ceiling it is
// cut down to the trailing tail afterwards; an open pattern that started
// before the cut cannot be recovered, which is an accepted approximation
// in exchange for bounded memory.
func (s *Stream) Process(fragment string) string {
	s.buffer += fragment

	out := s.sanitize(s.buffer)

	if len(s.buffer) > s.maxBuffer {
		s.buffer = s.buffer[len(s.buffer)-s.keepTail:]
	}

	return out
}

// sanitize fails open: redaction is plain string work and should never
// fault, but if it does, passing text through unredacted beats dropping
// the stream on the floor.
func (s *Stream) sanitize(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("stream filter failed open", "panic", r)
			out = text
		}
	}()
	return redact(text)
}
