package resolve

import "strings"

// fillerWords are dropped before word-overlap scoring.
var fillerWords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "a": {}, "an": {}, "&": {},
}

// corporateSuffixes commonly trail chain names and break exact nearby-search
// matching ("Burgerville USA" vs the mapped "Burgerville").
var corporateSuffixes = []string{"USA", "Inc", "Inc.", "Restaurant", "Restaurants"}

// Similarity scores how plausibly two place names refer to the same brand.
// Highest rule wins: prefix match 0.9, containment 0.8, otherwise Jaccard word
// overlap with a 0.7 floor when the leading brand words match. Returns 0 when
// either name is empty after filler removal.
func Similarity(name1, name2 string) float64 {
	a := normalizeName(name1)
	b := normalizeName(name2)

	if a == "" || b == "" {
		return 0
	}

	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return 0.9
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	wordsA := contentWords(a)
	wordsB := contentWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	jaccard := 0.0
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}

	// The first word is usually the brand itself.
	if wordsA[0] == wordsB[0] && jaccard < 0.7 {
		return 0.7
	}
	return jaccard
}

// normalizeName lowercases and strips punctuation, keeping word boundaries.
func normalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '&':
			// Kept as a word so filler removal sees it.
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// contentWords splits a normalized name and drops filler words, preserving order.
func contentWords(normalized string) []string {
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if _, filler := fillerWords[w]; filler {
			continue
		}
		out = append(out, w)
	}
	return out
}

// nameVariations generates search keywords to try for a brand name, most
// specific first: the original, the first word, the first two words, and the
// name with a trailing corporate suffix stripped. Deduplicated in order.
func nameVariations(name string) []string {
	variations := []string{name}

	words := strings.Fields(name)
	if len(words) > 1 {
		variations = append(variations, words[0])
	}
	if len(words) > 2 {
		variations = append(variations, words[0]+" "+words[1])
	}

	for _, suffix := range corporateSuffixes {
		if strings.HasSuffix(name, " "+suffix) {
			variations = append(variations, strings.TrimSuffix(name, " "+suffix))
		}
	}

	seen := make(map[string]struct{}, len(variations))
	out := make([]string, 0, len(variations))
	for _, v := range variations {
		if _, dup := seen[v]; dup || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
