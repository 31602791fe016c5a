// Package jsonscan extracts JSON objects from a text buffer in which they are
// concatenated without any delimiter.
package jsonscan

import (
	"encoding/json"
	"strings"
)

// Extract returns every complete JSON object at the front of buf together
// with the unconsumed remainder.
//
// Scanning stops at the first object that is not yet complete. A balanced span
// that is not valid JSON also stops it and stays in the remainder; it is never
// skipped. If nothing is consumed the remainder is buf unchanged.
func Extract(buf string) (objects []string, remainder string) {
	start := strings.IndexByte(buf, '{')
	for start != -1 {
		end := closingBrace(buf, start)
		if end == -1 {
			break
		}

		candidate := buf[start : end+1]
		if !json.Valid([]byte(candidate)) {
			break
		}
		objects = append(objects, candidate)

		buf = strings.TrimSpace(buf[end+1:])
		start = strings.IndexByte(buf, '{')
	}
	return objects, buf
}

// closingBrace returns the index of the brace that balances the one at start,
// or -1 if buf ends first. Braces inside string literals are not counted.
func closingBrace(buf string, start int) int {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(buf); i++ {
		c := buf[i]
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
				return i
			}
		}
	}
	return -1
}

// Scanner keeps the partial tail between successive writes.
type Scanner struct {
	buf string
}

// Write appends text and returns the objects it completed.
func (s *Scanner) Write(text string) []string {
	s.buf += text
	var objects []string
	objects, s.buf = Extract(s.buf)
	return objects
}

// Flush runs a final scan over whatever is buffered.
func (s *Scanner) Flush() []string {
	var objects []string
	objects, s.buf = Extract(s.buf)
	return objects
}

// Remainder returns the text that has not formed a complete object yet.
func (s *Scanner) Remainder() string {
	return s.buf
}
