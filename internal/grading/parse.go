package grading

import (
	"errors"
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// ErrMalformedResponse is returned when a backend reply holds no JSON
// object of the expected shape.
var ErrMalformedResponse = errors.New("grading: malformed response")

// ExtractJSON returns the first well-formed JSON object embedded in text.
// Markdown code fences are removed first; some models wrap the verdict in
// prose or in ```json blocks.
func ExtractJSON(text string) (string, bool) {
	text = stripFences(text)
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text[start:]); ok {
			candidate := text[start : start+end+1]
			if gjson.Valid(candidate) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lo.Filter(lines, func(l string, _ int) bool {
		return !strings.HasPrefix(strings.TrimSpace(l), "```")
	})
	return strings.Join(kept, "\n")
}

// matchBrace returns the index of the brace closing s[0], honouring JSON
// string literals and escapes.
func matchBrace(s string) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseTranslation decodes a translation verdict from a raw model reply.
func ParseTranslation(reply string) (TranslationResult, error) {
	obj, ok := ExtractJSON(reply)
	if !ok {
		return TranslationResult{}, ErrMalformedResponse
	}
	correct := gjson.Get(obj, "correct")
	if correct.Type != gjson.True && correct.Type != gjson.False {
		return TranslationResult{}, ErrMalformedResponse
	}
	alts := lo.Compact(lo.Map(gjson.Get(obj, "alternatives").Array(), func(r gjson.Result, _ int) string {
		return strings.TrimSpace(r.String())
	}))
	return TranslationResult{
		Correct:      correct.Bool(),
		Explanation:  gjson.Get(obj, "explanation").String(),
		Alternatives: alts,
		Tips:         gjson.Get(obj, "tips").String(),
	}, nil
}

// ParsePronunciation decodes a pronunciation verdict from a raw model reply.
// overallScore is mandatory; the sub-scores default to it when absent.
func ParsePronunciation(reply string) (PronunciationResult, error) {
	obj, ok := ExtractJSON(reply)
	if !ok {
		return PronunciationResult{}, ErrMalformedResponse
	}
	overall := gjson.Get(obj, "overallScore")
	if !isNumeric(overall) {
		return PronunciationResult{}, ErrMalformedResponse
	}
	score := func(path string) int {
		r := gjson.Get(obj, path)
		if !isNumeric(r) {
			r = overall
		}
		return int(math.Round(r.Float()))
	}
	return PronunciationResult{
		Accuracy:      score("accuracy"),
		Clarity:       score("clarity"),
		PhoneticMatch: score("phoneticMatch"),
		OverallScore:  score("overallScore"),
		Feedback:      gjson.Get(obj, "feedback").String(),
		Tips:          gjson.Get(obj, "tips").String(),
	}.clamp(), nil
}

func isNumeric(r gjson.Result) bool {
	switch r.Type {
	case gjson.Number:
		return true
	case gjson.String:
		return gjson.Parse(strings.TrimSpace(r.Str)).Type == gjson.Number
	}
	return false
}
