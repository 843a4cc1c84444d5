package chunker

import (
	"math"
	"sort"
	"strings"
)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75

	headingBoost = 1.5
	keywordBoost = 1.2
)

// ScoredChunk pairs a chunk id with its relevance score for a query.
type ScoredChunk struct {
	ID    string
	Score float64
}

// Scorable is the chunk shape the scorer needs: body text plus the derived
// heading and keyword metadata used for boosting.
type Scorable struct {
	ID       string
	Content  string
	Headings []string
	Keywords []string
}

// Score ranks chunks against a query with a BM25-style formula. Terms that
// also appear in a chunk's headings multiply the chunk score by 1.5, terms in
// its keywords by 1.2. The result is sorted descending; ties keep the
// original chunk order (stable sort). An empty query scores everything zero.
func Score(chunks []Scorable, query string) []ScoredChunk {
	results := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		results[i] = ScoredChunk{ID: c.ID}
	}
	if len(chunks) == 0 {
		return results
	}

	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return results
	}

	totalLen := 0
	for _, c := range chunks {
		totalLen += len(c.Content)
	}
	avgLen := float64(totalLen) / float64(len(chunks))

	// Document frequency per term across the chunk set. A chunk counts when
	// the term appears in its body, headings, or keywords.
	df := make(map[string]int, len(terms))
	for _, term := range terms {
		for _, c := range chunks {
			if containsTerm(c, term) {
				df[term]++
			}
		}
	}

	n := float64(len(chunks))
	for i, c := range chunks {
		contentLower := strings.ToLower(c.Content)
		docLen := float64(len(c.Content))
		score := 0.0

		for _, term := range terms {
			tf := float64(strings.Count(contentLower, term))
			idf := logIDF(n, float64(df[term]))
			score += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*(docLen/avgLen)))

			if headingHas(c.Headings, term) {
				score *= headingBoost
			}
			if keywordHas(c.Keywords, term) {
				score *= keywordBoost
			}
		}

		results[i].Score = score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// logIDF computes the BM25 inverse document frequency with the +1 smoothing
// that keeps scores non-negative for high-frequency terms.
func logIDF(n, df float64) float64 {
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

func containsTerm(c Scorable, term string) bool {
	return strings.Contains(strings.ToLower(c.Content), term) ||
		headingHas(c.Headings, term) ||
		keywordHas(c.Keywords, term)
}

func headingHas(headings []string, term string) bool {
	for _, h := range headings {
		if strings.Contains(strings.ToLower(h), term) {
			return true
		}
	}
	return false
}

func keywordHas(keywords []string, term string) bool {
	for _, k := range keywords {
		if strings.Contains(k, term) {
			return true
		}
	}
	return false
}
