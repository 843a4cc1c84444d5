// Package chunker splits normalized source text into bounded, overlapping
// segments with derived heading and keyword metadata.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Chunk is one segment of a source document.
type Chunk struct {
	Content  string
	Index    int
	Hash     string
	Headings []string
	Keywords []string
}

// Config defines chunking parameters.
type Config struct {
	// MaxSize is the maximum chunk size in characters. A single paragraph
	// longer than MaxSize still becomes one chunk; paragraphs are never
	// split mid-paragraph.
	MaxSize int
	// Overlap is the minimum character length of the word-boundary suffix
	// carried from one chunk into the next.
	Overlap int
}

// DefaultConfig returns the standard chunking parameters.
func DefaultConfig() Config {
	return Config{
		MaxSize: 1500,
		Overlap: 200,
	}
}

const (
	maxHeadings = 10
	maxKeywords = 20
)

var (
	mdHeadingRe  = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
	paragraphRe  = regexp.MustCompile(`\n\n+`)
	keywordRe    = regexp.MustCompile(`\b[a-z]{4,}\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stopWords are discarded during keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"was": {}, "are": {}, "were": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "its": {}, "they": {}, "them": {}, "their": {},
	"our": {}, "you": {}, "your": {}, "him": {}, "his": {}, "she": {},
	"her": {}, "not": {}, "yes": {}, "all": {}, "any": {}, "some": {},
	"most": {}, "more": {}, "less": {}, "than": {}, "then": {}, "just": {},
	"only": {}, "also": {}, "very": {}, "too": {}, "such": {}, "what": {},
	"which": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"because": {}, "about": {}, "into": {}, "through": {},
}

// Normalize converts line endings to \n, collapses runs of 3+ newlines to a
// single blank line, and trims surrounding whitespace.
func Normalize(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = blankRunsRe.ReplaceAllString(normalized, "\n\n")
	return strings.TrimSpace(normalized)
}

// Split divides text into ordered chunks. Paragraphs (blank-line delimited)
// are accumulated greedily; when appending the next paragraph would exceed
// cfg.MaxSize the current buffer is closed and the next one is seeded with a
// word-boundary suffix of at least cfg.Overlap characters. Indices are
// assigned sequentially from zero with no gaps.
func Split(text string, cfg Config) []Chunk {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var chunks []Chunk
	var current strings.Builder
	index := 0

	closeCurrent := func() {
		content := strings.TrimSpace(current.String())
		chunks = append(chunks, Chunk{
			Content:  content,
			Index:    index,
			Hash:     HashContent(content),
			Headings: ExtractHeadings(content),
			Keywords: ExtractKeywords(content),
		})
		index++
	}

	for _, paragraph := range paragraphRe.Split(normalized, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph)+2 > cfg.MaxSize {
			closeCurrent()

			seed := overlapSuffix(chunks[len(chunks)-1].Content, cfg.Overlap)
			current.Reset()
			if seed != "" {
				current.WriteString(seed)
				current.WriteString("\n\n")
			}
			current.WriteString(paragraph)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}

	if strings.TrimSpace(current.String()) != "" {
		closeCurrent()
	}

	return chunks
}

// overlapSuffix returns a suffix of text at least overlap characters long,
// built from whole words counted back from the end. Never splits mid-word.
func overlapSuffix(text string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	words := whitespaceRe.Split(text, -1)
	var suffix []string
	length := 0
	for i := len(words) - 1; i >= 0 && length < overlap; i-- {
		if len(suffix) > 0 {
			length++ // joining space
		}
		suffix = append([]string{words[i]}, suffix...)
		length += len(words[i])
	}
	return strings.Join(suffix, " ")
}

// HashContent returns a stable 16-hex-character content hash.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// ExtractHeadings finds markdown heading lines plus short, capitalized,
// unpunctuated lines that read as informal titles. Results are deduplicated
// in first-seen order and capped at 10.
func ExtractHeadings(text string) []string {
	var headings []string
	seen := make(map[string]struct{})

	add := func(h string) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		headings = append(headings, h)
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
			add(strings.TrimSpace(m[1]))
			continue
		}

		// Informal title heuristic: short, starts uppercase, no trailing
		// sentence punctuation.
		if len(trimmed) > 3 && len(trimmed) < 100 &&
			unicode.IsUpper([]rune(trimmed)[0]) &&
			!strings.HasSuffix(trimmed, ".") &&
			!strings.HasSuffix(trimmed, ",") {
			add(trimmed)
		}
	}

	if len(headings) > maxHeadings {
		headings = headings[:maxHeadings]
	}
	return headings
}

// ExtractKeywords lower-cases and tokenizes text into words of length >= 4,
// discards stop words, and returns the most frequent terms (descending,
// capped at 20). Ties keep first-seen order.
func ExtractKeywords(text string) []string {
	freq := make(map[string]int)
	var order []string

	for _, word := range keywordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}
