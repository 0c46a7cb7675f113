package monitor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Dedeep007/SAGE/internal/ocr"
)

// EstimateConfidence scores extracted text quality from its shape alone.
// Deterministic, no I/O. Used when the OCR backend reports no confidence.
func EstimateConfidence(text string) float64 {
	if text == "" {
		return 0.0
	}

	confidence := 0.5

	// Longer text tends to be more reliable
	n := utf8.RuneCountInString(text)
	if n >= 3 {
		confidence += 0.2
	}
	if n >= 10 {
		confidence += 0.1
	}

	hasLetters := false
	hasDigits := false
	special := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetters = true
		}
		if unicode.IsDigit(r) {
			hasDigits = true
		}
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != ' ' {
			special++
		}
	}

	if hasLetters {
		confidence += 0.1
	}
	if hasLetters && hasDigits {
		confidence += 0.1
	}
	if strings.ContainsRune(text, ' ') {
		confidence += 0.05
	}

	// Penalize text dominated by special characters
	if float64(special) > float64(n)*0.3 {
		confidence -= 0.2
	}

	return max(0.0, min(1.0, confidence))
}

// CleanText collapses whitespace runs and drops OCR noise fragments:
// tokens shorter than 2 runes survive only if alphanumeric or one of the
// one-letter words "a"/"i".
func CleanText(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 || isAlnum(w) || strings.EqualFold(w, "a") || strings.EqualFold(w, "i") {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// scoreFragments averages confidence across fragments, preferring the
// engine's native value and falling back to the heuristic per fragment.
func scoreFragments(frags []ocr.Fragment) float64 {
	if len(frags) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, f := range frags {
		c := f.Confidence
		if c < 0 {
			c = EstimateConfidence(f.Text)
		}
		sum += c
	}
	return sum / float64(len(frags))
}

// joinFragments concatenates fragment text in the order the engine
// returned it.
func joinFragments(frags []ocr.Fragment) string {
	texts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}
