package reply

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/onnwee/livereply/persona"
)

// IsMeaningless reports whether text is too short, too repetitive, or too dominated
// by one of the persona's filler patterns to deserve a reply. The checks run in a
// fixed order and stop at the first hit; lengths are counted in characters.
func IsMeaningless(text string, p persona.Persona) bool {
	if !p.FilteringEnabled {
		return false
	}
	if utf8.RuneCountInString(text) < p.MinMessageLength {
		return true
	}

	trimmed := strings.TrimSpace(text)
	trimmedLen := utf8.RuneCountInString(trimmed)
	for _, pattern := range p.MeaninglessPatterns {
		if pattern == "" {
			continue
		}
		patternLen := utf8.RuneCountInString(pattern)
		if trimmed == strings.TrimSpace(pattern) {
			return true
		}
		if strings.Contains(text, pattern) && trimmedLen <= patternLen+2 {
			return true
		}
		re := compilePattern(pattern)
		if re == nil {
			continue
		}
		if re.MatchString(text) && float64(trimmedLen)/float64(patternLen) < 2 {
			return true
		}
	}

	if utf8.RuneCountInString(text) > 2 && distinctFolded(text) <= 2 {
		return true
	}
	return false
}

func distinctFolded(text string) int {
	seen := map[rune]struct{}{}
	for _, r := range strings.ToLower(text) {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// compiled patterns are cached; a nil entry marks a pattern that does not compile.
var patternCache sync.Map

func compilePattern(pattern string) *regexp.Regexp {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = nil
	}
	patternCache.Store(pattern, re)
	return re
}
