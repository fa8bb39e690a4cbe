// Package textkit provides small text-analysis helpers shared by the
// consensus synthesizer. All functions are pure with no side effects.
package textkit

import "strings"

// stopWords are excluded from theme-candidate extraction. Only tokens longer
// than four characters are considered, so short function words never reach
// this list.
var stopWords = map[string]bool{
	"about":    true,
	"after":    true,
	"being":    true,
	"could":    true,
	"every":    true,
	"first":    true,
	"other":    true,
	"their":    true,
	"there":    true,
	"these":    true,
	"thing":    true,
	"those":    true,
	"through":  true,
	"under":    true,
	"where":    true,
	"which":    true,
	"while":    true,
	"would":    true,
	"offers":   true,
	"provides": true,
	"website":  true,
}

// Tokenize splits text into lowercase whitespace-delimited words with
// leading/trailing punctuation trimmed. Empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ThemeCandidates returns the tokens of text that are candidate themes:
// longer than four characters and not a stop word.
func ThemeCandidates(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		if len(tok) > 4 && !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// WordSet returns the set of tokens in text.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}

// Jaccard computes the Jaccard index |A∩B| / |A∪B| over the word sets of two
// text fragments. Two empty fragments are defined as identical (1.0).
func Jaccard(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range sa {
		if sb[w] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
