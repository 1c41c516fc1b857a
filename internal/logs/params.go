package logs

import (
	"strconv"
	"strings"

	"airflow-mcp/internal/toolerr"
)

// Level selects which log lines survive filtering. The empty level (and
// "info") keep everything; with "info" the match count reports every kept
// line, with no filter it stays zero.
type Level string

const (
	LevelNone    Level = ""
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Documented parameter bounds. Out-of-range input is clamped, never
// rejected.
const (
	MaxContextLines = 1_000
	MaxTailLines    = 100_000
	DefaultMaxBytes = 100_000
	maxBytesCeiling = 10_000_000
)

// Params are the effective, post-clamp filter parameters. Build them with
// NewParams so every instance satisfies the documented bounds.
type Params struct {
	Level        Level `json:"filter_level"`
	ContextLines int   `json:"context_lines"`
	TailLines    int   `json:"tail_lines"`
	MaxBytes     int   `json:"max_bytes"`
}

// CoerceInt converts loosely-typed tool arguments to int. JSON numbers
// arrive as float64, MCP clients sometimes send numeric strings; both are
// accepted and truncated toward zero. The second return is false when the
// value has no usable integer interpretation.
func CoerceInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// NewParams coerces and clamps raw filter arguments into effective Params.
// Numeric inputs that cannot be interpreted at all fall back to the
// parameter's default rather than failing; an unrecognized level is the one
// input that is rejected, because silently ignoring it would return
// unfiltered logs the caller did not ask for.
func NewParams(level string, contextLines, tailLines, maxBytes interface{}) (Params, error) {
	p := Params{MaxBytes: DefaultMaxBytes}

	switch Level(strings.ToLower(strings.TrimSpace(level))) {
	case LevelNone:
		p.Level = LevelNone
	case LevelError:
		p.Level = LevelError
	case LevelWarning:
		p.Level = LevelWarning
	case LevelInfo:
		p.Level = LevelInfo
	default:
		return Params{}, toolerr.Newf(toolerr.CodeInvalidInput,
			"filter_level must be one of 'error', 'warning', 'info'").
			WithContext("field", "filter_level").
			WithContext("value", level)
	}

	if n, ok := CoerceInt(contextLines); ok {
		p.ContextLines = clamp(n, 0, MaxContextLines)
	}
	if n, ok := CoerceInt(tailLines); ok {
		p.TailLines = clamp(n, 0, MaxTailLines)
	}
	if n, ok := CoerceInt(maxBytes); ok && n > 0 {
		p.MaxBytes = clamp(n, 1, maxBytesCeiling)
	}

	return p, nil
}
