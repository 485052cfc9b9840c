// Package matcher ranks stored error records by their similarity to a
// candidate command.
//
// Scoring is lexical and deterministic: no learned model, no network, and
// the result is reproducible from the stored records alone.
package matcher

import (
	"sort"

	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/normalize"
)

// DefaultMinSimilarity drops matches below this score as noise.
const DefaultMinSimilarity = 0.6

// Match pairs a stored record with its similarity to the candidate.
type Match struct {
	Record models.ErrorRecord `json:"record"`
	Score  float64            `json:"score"`

	index int // insertion position in the history, for tie-breaking
}

// Options tunes a Match call.
type Options struct {
	// MinSimilarity is the lowest score returned. Zero means DefaultMinSimilarity.
	MinSimilarity float64

	// Project restricts matching to records of this project when ProjectOnly is set.
	Project     string
	ProjectOnly bool

	// Limit caps the number of results. Zero means unlimited.
	Limit int
}

// Find scores candidate against every record in history and returns the
// matches at or above the threshold, highest score first. Ties go to the
// most recent timestamp, then to the later insertion. Empty history or a
// blank candidate yields an empty result.
func Find(candidate string, history []models.ErrorRecord, opts Options) []Match {
	minScore := opts.MinSimilarity
	if minScore <= 0 {
		minScore = DefaultMinSimilarity
	}

	norm := normalize.Command(candidate)
	if norm == "" || len(history) == 0 {
		return nil
	}

	var matches []Match
	for i, rec := range history {
		if opts.ProjectOnly && rec.Project != opts.Project {
			continue
		}
		recNorm := rec.Normalized
		if recNorm == "" {
			recNorm = normalize.Command(rec.Command)
		}
		score := Score(norm, recNorm)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Record: rec, Score: score, index: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Record.Timestamp.Equal(b.Record.Timestamp) {
			return a.Record.Timestamp.After(b.Record.Timestamp)
		}
		return a.index > b.index
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches
}

// Best returns the top match, or false when there is none.
func Best(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
