// Package trigger decides whether an inbound message is addressed to the
// assistant and extracts the payload that follows the wake word or prefix.
package trigger

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"peanut/internal/config"
)

// Detector matches inbound text against a precedence-ordered rule table.
// The first matching rule both decides the trigger and strips exactly what it
// matched, so detection and extraction can never disagree.
type Detector struct {
	keywords *config.KeywordSource
}

// NewDetector creates a detector reading its wake words and prefixes from the
// given keyword source (hot-reload aware).
func NewDetector(keywords *config.KeywordSource) *Detector {
	return &Detector{keywords: keywords}
}

// Detect reports whether raw is addressed to the assistant and returns the
// payload with the matched prefix stripped. Non-triggered text is returned
// unchanged. Empty or whitespace-only text never triggers.
func (d *Detector) Detect(raw string) (bool, string) {
	text := normalize(raw)
	if text == "" {
		return false, raw
	}

	kw := d.keywords.Current()
	lower := strings.ToLower(text)

	// Rule 1: explicit prefixes ("ai:", "@peanut", ...)
	for _, prefix := range kw.Prefixes {
		if strings.HasPrefix(lower, prefix) {
			return true, strings.TrimSpace(text[len(prefix):])
		}
	}

	for _, wake := range kw.WakeWords {
		// Rule 2: bare wake-word message ("花生")
		if lower == wake {
			return true, ""
		}

		// Rule 3: wake word at position 0
		if rest, ok := cutWake(lower, text, wake, 0); ok {
			return true, rest
		}

		// Rules 4 and 5: wake word after exactly one allowed punctuation char,
		// optionally followed by exactly one space. Two leading punctuation
		// marks never trigger.
		first, width := firstRune(lower)
		if width > 0 && strings.ContainsRune(kw.LeadingPunct, first) {
			if rest, ok := cutWake(lower, text, wake, width); ok {
				return true, rest
			}
			if lower[width:] != "" && lower[width] == ' ' {
				if rest, ok := cutWake(lower, text, wake, width+1); ok {
					return true, rest
				}
			}
		}
	}

	return false, raw
}

// IsEndCommand reports whether raw is an explicit "end conversation" command
func (d *Detector) IsEndCommand(raw string) bool {
	text := strings.ToLower(normalize(raw))
	for _, cmd := range d.keywords.Current().EndCommands {
		if text == cmd {
			return true
		}
	}
	return false
}

// cutWake matches wake at byte offset off of lower and returns the payload cut
// from the original-cased text. ASCII wake words must not match inside a longer
// word ("peanuts are great" is not addressed to the assistant).
func cutWake(lower, text, wake string, off int) (string, bool) {
	if off > len(lower) || !strings.HasPrefix(lower[off:], wake) {
		return "", false
	}
	end := off + len(wake)
	if isASCIIWord(wake) {
		next, width := firstRune(lower[end:])
		if width > 0 && (unicode.IsLetter(next) || unicode.IsDigit(next)) {
			return "", false
		}
	}
	payload := strings.TrimSpace(text[end:])
	// A separator between wake word and payload ("花生:幫我...") belongs to the
	// match, not the payload.
	payload = strings.TrimLeft(payload, ":：,，、")
	return strings.TrimSpace(payload), true
}

// normalize applies Unicode NFKC canonicalization and trims surrounding space
func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
