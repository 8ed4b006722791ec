package manager

import (
	"unicode"
	"unicode/utf8"
)

// HighlightMode selects how matches of the search term are shown in a row title.
type HighlightMode string

const (
	HighlightNone      HighlightMode = "none"
	HighlightLive      HighlightMode = "live"
	HighlightTriggered HighlightMode = "triggered"
)

// Span is a half-open byte range of a string.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segment is a piece of a title, marked when it matches the search term.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// MatchSpans returns the non-overlapping case-insensitive occurrences of term in s, left to right.
// term is literal text.
func MatchSpans(s, term string) []Span {
	if term == "" {
		return nil
	}
	var spans []Span
	for i := 0; i < len(s); {
		if end, ok := prefixFold(s[i:], term); ok {
			spans = append(spans, Span{Start: i, End: i + end})
			i += end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return spans
}

// ContainsFold reports whether s contains term, ignoring case. Every string contains "".
func ContainsFold(s, term string) bool {
	if term == "" {
		return true
	}
	for i := 0; i < len(s); {
		if _, ok := prefixFold(s[i:], term); ok {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return false
}

// prefixFold reports whether s starts with prefix when both are lowercased rune by rune
// and returns the byte length of the matching part of s.
func prefixFold(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && unicode.ToLower(sr) != unicode.ToLower(pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// Highlight splits title into segments around the matches of term.
// The segments concatenate back to title.
func Highlight(title, term string) []Segment {
	if title == "" {
		return nil
	}
	spans := MatchSpans(title, term)
	if len(spans) == 0 {
		return []Segment{{Text: title}}
	}
	segments := make([]Segment, 0, 2*len(spans)+1)
	pos := 0
	for _, sp := range spans {
		if sp.Start > pos {
			segments = append(segments, Segment{Text: title[pos:sp.Start]})
		}
		segments = append(segments, Segment{Text: title[sp.Start:sp.End], Match: true})
		pos = sp.End
	}
	if pos < len(title) {
		segments = append(segments, Segment{Text: title[pos:]})
	}
	return segments
}
