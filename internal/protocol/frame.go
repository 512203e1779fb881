package protocol

import (
	"bytes"
	"fmt"
)

// MaxFrameSize caps how much unframed data is buffered. The largest real
// replies (settings, schedules) are a few hundred bytes.
const MaxFrameSize = 64 * 1024

// FindEnd locates the end of the first top-level JSON object in buf.
//
// It returns the index one past the closing brace of that object. When buf
// is empty or holds only an incomplete object it returns 0 and a nil error.
// When buf does not start with '{' it returns ErrNoObjectStart.
//
// Braces inside string literals are ignored, and backslash escapes inside
// strings are honoured, so values such as "tz":"{x}" frame correctly.
func FindEnd(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if buf[0] != '{' {
		return 0, ErrNoObjectStart
	}

	depth := 0
	inString := false
	escaped := false

	for i, c := range buf {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}

	return 0, nil
}

// FrameBuffer accumulates stream bytes and yields complete JSON objects.
//
// Thread Safety:
//   - Not safe for concurrent use. Each connection's reader owns one buffer.
type FrameBuffer struct {
	buf []byte
}

// Write appends raw stream data. It never fails; the signature matches
// io.Writer so the buffer can sit behind io.Copy in tests.
func (f *FrameBuffer) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// Next returns the next complete object, or nil when more data is needed.
//
// Whitespace between objects is skipped. If the buffer starts with anything
// other than '{', the junk up to the next '{' is discarded and
// ErrNoObjectStart is returned once; the following call resumes framing.
// If the buffered remainder grows past MaxFrameSize without completing, the
// buffer is cleared and ErrFrameTooLarge is returned.
func (f *FrameBuffer) Next() ([]byte, error) {
	f.buf = bytes.TrimLeft(f.buf, " \t\r\n")

	end, err := FindEnd(f.buf)
	if err != nil {
		skipped := len(f.buf)
		if idx := bytes.IndexByte(f.buf, '{'); idx >= 0 {
			skipped = idx
			f.buf = f.buf[idx:]
		} else {
			f.buf = f.buf[:0]
		}
		return nil, fmt.Errorf("%w: skipped %d bytes", err, skipped)
	}

	if end == 0 {
		if len(f.buf) > MaxFrameSize {
			size := len(f.buf)
			f.buf = f.buf[:0]
			return nil, fmt.Errorf("%w: %d bytes buffered", ErrFrameTooLarge, size)
		}
		return nil, nil
	}

	frame := make([]byte, end)
	copy(frame, f.buf[:end])
	f.buf = f.buf[end:]
	return frame, nil
}

// Len returns the number of buffered, unframed bytes.
func (f *FrameBuffer) Len() int {
	return len(f.buf)
}

// Reset discards all buffered data.
func (f *FrameBuffer) Reset() {
	f.buf = f.buf[:0]
}
