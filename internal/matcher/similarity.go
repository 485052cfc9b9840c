package matcher

import "github.com/dotcommander/cmdguard/internal/normalize"

// Score returns the similarity of two normalized commands in [0,1].
//
// Identical forms score exactly 1.0. Commands that run different programs
// score 0. Otherwise the score is the mean of the token-set Jaccard index and
// the Damerau-Levenshtein similarity of the two strings.
func Score(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1.0
	}

	ta := normalize.Tokens(a)
	tb := normalize.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if normalize.Program(ta) != normalize.Program(tb) {
		return 0
	}

	score := 0.5*jaccard(ta, tb) + 0.5*editSimilarity(a, b)
	// Only identical strings may reach 1.0.
	if score >= 1.0 {
		score = 0.999
	}
	return score
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func editSimilarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(damerauLevenshtein(a, b))/float64(maxLen)
}

// damerauLevenshtein computes the optimal string alignment distance:
// insertions, deletions, substitutions and adjacent transpositions each
// cost one edit.
func damerauLevenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+cost)
			}
		}
	}
	return d[len(ra)][len(rb)]
}
