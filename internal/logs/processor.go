// Package logs post-processes raw Airflow task logs into bounded,
// filterable text an LLM can actually consume. The pipeline runs in a fixed
// order: host-segment normalization, auto-tail safeguard, tail extraction,
// level filtering, context expansion, byte capping. Each stage is a pure,
// bounded transformation.
package logs

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// autoTailThreshold is the size above which input is unconditionally tailed
// before any further processing, regardless of requested parameters. It is a
// package variable so tests can exercise the safeguard without allocating
// 100MB strings.
var autoTailThreshold = 100_000_000

// autoTailKeepLines is how much survives an auto-tail.
const autoTailKeepLines = 10_000

var levelPatterns = map[Level]*regexp.Regexp{
	LevelError:   regexp.MustCompile(`(?i)\b(ERROR|CRITICAL|FATAL|Exception|Traceback)\b`),
	LevelWarning: regexp.MustCompile(`(?i)\b(WARN(ING)?|ERROR|CRITICAL|FATAL)\b`),
}

// Result is the outcome of processing one raw log payload. Stats describe
// the text actually returned, so they are always self-consistent with Log.
type Result struct {
	Log           string `json:"log"`
	Truncated     bool   `json:"truncated"`
	AutoTailed    bool   `json:"auto_tailed"`
	MatchCount    int    `json:"match_count"`
	BytesReturned int    `json:"bytes_returned"`
	OriginalLines int    `json:"original_lines"`
	ReturnedLines int    `json:"returned_lines"`
	Params        Params `json:"-"`
}

// Process runs the full pipeline over raw with the given effective params.
func Process(raw string, params Params) Result {
	result := Result{Params: params}

	text := normalizeSegments(raw)

	if len(text) > autoTailThreshold {
		lines := splitLines(text)
		if len(lines) > autoTailKeepLines {
			lines = lines[len(lines)-autoTailKeepLines:]
		}
		text = strings.Join(lines, "\n")
		result.AutoTailed = true
	}

	lines := splitLines(text)
	result.OriginalLines = len(lines)

	if params.TailLines > 0 && len(lines) > params.TailLines {
		lines = lines[len(lines)-params.TailLines:]
	}

	if params.Level == LevelInfo {
		// Info matches every line, so the stat reflects the full selection.
		result.MatchCount = len(lines)
	}

	if pattern, ok := levelPatterns[params.Level]; ok {
		var matched []int
		for i, line := range lines {
			if pattern.MatchString(line) {
				matched = append(matched, i)
			}
		}
		result.MatchCount = len(matched)

		if params.ContextLines > 0 && len(matched) > 0 {
			lines = expandContext(lines, matched, params.ContextLines)
		} else {
			kept := make([]string, len(matched))
			for i, idx := range matched {
				kept[i] = lines[idx]
			}
			lines = kept
		}
	}

	text = strings.Join(lines, "\n")
	if len(text) > params.MaxBytes {
		text = truncateUTF8(text, params.MaxBytes)
		result.Truncated = true
	}

	result.Log = text
	result.BytesReturned = len(text)
	result.ReturnedLines = countLines(text)
	return result
}

// splitLines behaves like Python's splitlines for the subset that matters:
// a trailing newline does not produce a final empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return len(splitLines(text))
}

// expandContext grows each match into a symmetric window of n lines on both
// sides; overlapping windows coalesce into one contiguous block instead of
// duplicating lines.
func expandContext(lines []string, matched []int, n int) []string {
	include := make(map[int]struct{})
	for _, idx := range matched {
		start := idx - n
		if start < 0 {
			start = 0
		}
		end := idx + n
		if end > len(lines)-1 {
			end = len(lines) - 1
		}
		for i := start; i <= end; i++ {
			include[i] = struct{}{}
		}
	}

	indices := make([]int, 0, len(include))
	for i := range include {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = lines[idx]
	}
	return out
}

// truncateUTF8 cuts text to at most max bytes without splitting a
// multi-byte character.
func truncateUTF8(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
