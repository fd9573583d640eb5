package normalize

import (
	"encoding/json"
	"strings"
)

// Strategy pulls JSON candidates out of free-form model text, best first.
type Strategy struct {
	Name    string
	Extract func(text string, open byte) []string
}

// Strategies is the ordered extraction cascade. The first candidate that parses
// as strict JSON and passes the caller's shape check wins.
var Strategies = []Strategy{
	{Name: "whole", Extract: wholeText},
	{Name: "fenced", Extract: fencedBody},
	{Name: "span", Extract: greedySpan},
	{Name: "balanced", Extract: balancedGroups},
}

// Extract runs the cascade once per bracket kind in opens ('{' or '['), in
// preference order, and returns the first candidate accepted by accept along
// with the strategy name.
func Extract(text string, accept func(json.RawMessage) bool, opens ...byte) (json.RawMessage, string, bool) {
	if len(opens) == 0 {
		opens = []byte{'{', '['}
	}
	seen := map[string]bool{}
	for _, open := range opens {
		for _, s := range Strategies {
			for _, candidate := range s.Extract(text, open) {
				candidate = strings.TrimSpace(candidate)
				if candidate == "" || seen[candidate] {
					continue
				}
				seen[candidate] = true
				if !json.Valid([]byte(candidate)) {
					continue
				}
				raw := json.RawMessage(candidate)
				if accept == nil || accept(raw) {
					return raw, s.Name, true
				}
			}
		}
	}
	return nil, "", false
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}

func wholeText(text string, _ byte) []string {
	if s := strings.TrimSpace(text); s != "" {
		return []string{s}
	}
	return nil
}

// fencedBody returns the body of the first ``` fence; the language tag is ignored
// and an unterminated fence runs to the end of the text.
func fencedBody(text string, _ byte) []string {
	start := strings.Index(text, "```")
	if start < 0 {
		return nil
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if !strings.ContainsAny(tag, "{[") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	return []string{rest}
}

// greedySpan takes everything from the first opening bracket to the last
// matching closing bracket.
func greedySpan(text string, open byte) []string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, closerFor(open))
	if start < 0 || end <= start {
		return nil
	}
	return []string{text[start : end+1]}
}

// balancedGroups returns the bracket groups that close at depth zero and parse
// as JSON, left to right, skipping brackets inside JSON strings. Scanning
// resumes after a valid group and just past the opener of anything else.
func balancedGroups(text string, open byte) []string {
	closer := closerFor(open)
	var out []string
	for start := strings.IndexByte(text, open); start >= 0; {
		end := closingIndex(text, start, open, closer)
		next := start + 1
		if end > start && json.Valid([]byte(text[start:end+1])) {
			out = append(out, text[start:end+1])
			next = end + 1
		}
		if next >= len(text) {
			break
		}
		i := strings.IndexByte(text[next:], open)
		if i < 0 {
			break
		}
		start = next + i
	}
	return out
}

func closingIndex(text string, start int, open, closer byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
