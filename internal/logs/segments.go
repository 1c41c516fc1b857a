package logs

import (
	"strconv"
	"strings"
)

// Some Airflow versions return task logs as a python-repr list of
// (hostname, text) tuples instead of plain text. normalizeSegments flattens
// that form into a single blob with one canonical header line per segment:
//
//	--- [worker-1] ---
//	<segment text>
//
//	--- [unknown-host] ---
//	...
//
// so downstream consumers can reason about execution locality without
// parsing backend-specific markers. Input that is not host-segmented passes
// through untouched.
func normalizeSegments(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[(") && !strings.HasPrefix(trimmed, "[[") {
		return raw
	}
	segments, ok := parseSegmentList(trimmed)
	if !ok {
		return raw
	}

	var parts []string
	for i, seg := range segments {
		if i > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, "--- ["+normalizeHost(seg.host)+"] ---")
		if text := strings.TrimRight(seg.text, "\n"); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Trim(strings.Join(parts, "\n"), "\n")
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown-host"
	}
	return host
}

type segment struct {
	host string
	text string
}

// parseSegmentList parses a python-literal list of 1- or 2-element tuples
// (or lists) of strings. It is deliberately strict: on any unexpected shape
// it reports failure and the caller passes the raw text through unchanged.
func parseSegmentList(s string) ([]segment, bool) {
	p := &segmentParser{input: s}
	p.skipSpace()
	if !p.consume('[') {
		return nil, false
	}

	var segments []segment
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}
		if len(segments) > 0 {
			if !p.consume(',') {
				return nil, false
			}
			p.skipSpace()
			// Trailing comma before the closing bracket.
			if p.consume(']') {
				break
			}
		}
		seg, ok := p.parseTuple()
		if !ok {
			return nil, false
		}
		segments = append(segments, seg)
	}

	p.skipSpace()
	if !p.done() || len(segments) == 0 {
		return nil, false
	}
	return segments, true
}

type segmentParser struct {
	input string
	pos   int
}

func (p *segmentParser) done() bool {
	return p.pos >= len(p.input)
}

func (p *segmentParser) skipSpace() {
	for !p.done() {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *segmentParser) consume(c byte) bool {
	if p.done() || p.input[p.pos] != c {
		return false
	}
	p.pos++
	return true
}

func (p *segmentParser) parseTuple() (segment, bool) {
	p.skipSpace()
	var closer byte
	switch {
	case p.consume('('):
		closer = ')'
	case p.consume('['):
		closer = ']'
	default:
		return segment{}, false
	}

	var values []string
	for {
		p.skipSpace()
		if p.consume(closer) {
			break
		}
		if len(values) > 0 {
			if !p.consume(',') {
				return segment{}, false
			}
			p.skipSpace()
			if p.consume(closer) {
				break
			}
		}
		v, ok := p.parseString()
		if !ok {
			return segment{}, false
		}
		values = append(values, v)
	}

	switch len(values) {
	case 1:
		return segment{host: values[0]}, true
	case 2:
		return segment{host: values[0], text: values[1]}, true
	default:
		return segment{}, false
	}
}

// parseString reads a python string literal: single or double quoted, with
// the common escapes Airflow emits.
func (p *segmentParser) parseString() (string, bool) {
	if p.done() {
		return "", false
	}
	quote := p.input[p.pos]
	if quote != '\'' && quote != '"' {
		return "", false
	}
	p.pos++

	var b strings.Builder
	for !p.done() {
		c := p.input[p.pos]
		if c == quote {
			p.pos++
			return b.String(), true
		}
		if c != '\\' {
			b.WriteByte(c)
			p.pos++
			continue
		}

		p.pos++
		if p.done() {
			return "", false
		}
		esc := p.input[p.pos]
		p.pos++
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(esc)
		case 'x':
			if p.pos+2 > len(p.input) {
				return "", false
			}
			n, err := strconv.ParseUint(p.input[p.pos:p.pos+2], 16, 8)
			if err != nil {
				return "", false
			}
			b.WriteByte(byte(n))
			p.pos += 2
		default:
			// Unknown escape, keep it verbatim.
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}
	return "", false
}
