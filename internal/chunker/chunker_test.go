package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"completely empty", ""},
		{"whitespace only", "   \n\n\t  "},
		{"blank lines only", "\n\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, DefaultConfig())
			if len(chunks) != 0 {
				t.Errorf("Split() got %d chunks, want 0", len(chunks))
			}
		})
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks := Split("Just one short paragraph.", DefaultConfig())

	if len(chunks) != 1 {
		t.Fatalf("Split() got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("chunk index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].Content != "Just one short paragraph." {
		t.Errorf("chunk content = %q", chunks[0].Content)
	}
	if len(chunks[0].Hash) != 16 {
		t.Errorf("hash length = %d, want 16", len(chunks[0].Hash))
	}
}

func TestSplit_IndicesContiguous(t *testing.T) {
	text := buildParagraphs(20, 400)
	chunks := Split(text, Config{MaxSize: 1000, Overlap: 100})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if strings.TrimSpace(c.Content) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplit_MaxSizeRespected(t *testing.T) {
	cfg := Config{MaxSize: 800, Overlap: 100}
	text := buildParagraphs(12, 300)

	for i, c := range Split(text, cfg) {
		// A chunk may only exceed MaxSize if it contains a single oversized
		// paragraph, which this input does not produce.
		if len(c.Content) > cfg.MaxSize {
			t.Errorf("chunk %d length %d exceeds max %d", i, len(c.Content), cfg.MaxSize)
		}
	}
}

func TestSplit_OversizedParagraphKeptWhole(t *testing.T) {
	// One paragraph longer than MaxSize must not be split mid-paragraph.
	long := strings.Repeat("lengthy content words here ", 100) // ~2700 chars
	chunks := Split(strings.TrimSpace(long), Config{MaxSize: 500, Overlap: 50})

	if len(chunks) != 1 {
		t.Fatalf("Split() got %d chunks, want 1 (paragraph must stay whole)", len(chunks))
	}
	if len(chunks[0].Content) <= 500 {
		t.Errorf("expected oversized chunk, got len %d", len(chunks[0].Content))
	}
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	cfg := Config{MaxSize: 600, Overlap: 120}
	text := buildParagraphs(8, 250)
	chunks := Split(text, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		// The seed is the first blank-line-delimited segment of the chunk.
		seed, _, ok := strings.Cut(chunks[i].Content, "\n\n")
		if !ok {
			t.Fatalf("chunk %d has no overlap seed separator", i)
		}
		if len(seed) < cfg.Overlap {
			t.Errorf("chunk %d seed length %d < overlap %d", i, len(seed), cfg.Overlap)
		}
		// The seed must reproduce the tail words of the previous chunk:
		// whole words only, never a mid-word split.
		seedWords := strings.Fields(seed)
		prevWords := strings.Fields(chunks[i-1].Content)
		if len(seedWords) > len(prevWords) {
			t.Fatalf("chunk %d seed longer than previous chunk", i)
		}
		tail := prevWords[len(prevWords)-len(seedWords):]
		for j := range seedWords {
			if seedWords[j] != tail[j] {
				t.Errorf("chunk %d seed word %d = %q, want %q", i, j, seedWords[j], tail[j])
				break
			}
		}
	}
}

// scenarioParagraph builds one single-line paragraph of exactly size
// characters: a short lead word absorbing the remainder, then nine-character
// words so overlap seeds stay word-aligned.
func scenarioParagraph(size int, seq *int) string {
	words := size / 10
	lead := size - words*10
	if lead == 0 {
		words--
		lead = 10
	}

	parts := []string{strings.Repeat("x", lead)}
	for i := 0; i < words; i++ {
		*seq++
		parts = append(parts, fmt.Sprintf("w%08d", *seq))
	}
	return strings.Join(parts, " ")
}

// TestSplit_FourThousandCharScenario checks the documented end-to-end shape:
// a 4000-character plain-text source with maxSize 1500 and overlap 200 yields
// 3 chunks, and chunk 2 opens with the tail words of chunk 1 up to at least
// 200 characters.
func TestSplit_FourThousandCharScenario(t *testing.T) {
	// Paragraph sizes chosen so two fill the first chunk and each later
	// chunk packs two more behind its ~209-char overlap seed.
	seq := 0
	var paragraphs []string
	for _, size := range []int{722, 722, 637, 636, 637, 636} {
		paragraphs = append(paragraphs, scenarioParagraph(size, &seq))
	}
	text := strings.Join(paragraphs, "\n\n")
	if len(text) != 4000 {
		t.Fatalf("scenario input is %d chars, want 4000", len(text))
	}

	chunks := Split(text, Config{MaxSize: 1500, Overlap: 200})

	if len(chunks) != 3 {
		t.Fatalf("Split() got %d chunks, want 3", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Content) > 1500 {
			t.Errorf("chunk %d length %d exceeds max size", i, len(chunk.Content))
		}
	}

	seed, _, _ := strings.Cut(chunks[1].Content, "\n\n")
	if len(seed) < 200 {
		t.Errorf("chunk 2 overlap seed length %d, want >= 200", len(seed))
	}
	seedWords := strings.Fields(seed)
	prevWords := strings.Fields(chunks[0].Content)
	tail := prevWords[len(prevWords)-len(seedWords):]
	for j := range seedWords {
		if seedWords[j] != tail[j] {
			t.Fatalf("chunk 2 opening word %d = %q, want tail word %q of chunk 1", j, seedWords[j], tail[j])
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := buildParagraphs(10, 350)
	first := Split(text, DefaultConfig())
	second := Split(text, DefaultConfig())

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content || first[i].Hash != second[i].Hash {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"bare cr", "a\rb", "a\nb"},
		{"blank run collapsed", "a\n\n\n\n\nb", "a\n\nb"},
		{"trimmed", "  \n a \n ", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractHeadings(t *testing.T) {
	text := "# Main Title\n\nSome body text that goes on.\n\n## Subsection\n\nAnother Informal Title\n\nlowercase line stays out.\n\nThis one ends with a period."

	headings := ExtractHeadings(text)

	want := []string{"Main Title", "Subsection", "Another Informal Title"}
	for _, w := range want {
		if !contains(headings, w) {
			t.Errorf("headings missing %q: %v", w, headings)
		}
	}
	if contains(headings, "lowercase line stays out.") {
		t.Errorf("lowercase line should not be a heading")
	}
	if contains(headings, "This one ends with a period.") {
		t.Errorf("punctuated line should not be a heading")
	}
}

func TestExtractHeadings_DedupeAndCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&sb, "# Heading %d\n\n# Heading %d\n\n", i, i)
	}
	headings := ExtractHeadings(sb.String())

	if len(headings) != 10 {
		t.Errorf("got %d headings, want 10 (capped)", len(headings))
	}
	seen := map[string]int{}
	for _, h := range headings {
		seen[h]++
		if seen[h] > 1 {
			t.Errorf("heading %q duplicated", h)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "kubernetes kubernetes kubernetes deployment deployment cluster the and with tiny ab"

	keywords := ExtractKeywords(text)

	if len(keywords) < 3 {
		t.Fatalf("got %d keywords: %v", len(keywords), keywords)
	}
	if keywords[0] != "kubernetes" {
		t.Errorf("top keyword = %q, want kubernetes", keywords[0])
	}
	if keywords[1] != "deployment" {
		t.Errorf("second keyword = %q, want deployment", keywords[1])
	}
	for _, k := range keywords {
		if len(k) < 4 {
			t.Errorf("keyword %q shorter than 4 chars", k)
		}
		if k == "the" || k == "and" || k == "with" {
			t.Errorf("stop word %q leaked into keywords", k)
		}
	}
}

func TestExtractKeywords_RejectsAlphanumericTokens(t *testing.T) {
	keywords := ExtractKeywords("word123 v2beta kubernetes kubernetes 4ever42")

	if contains(keywords, "word") || contains(keywords, "word123") {
		t.Errorf("alphanumeric token leaked into keywords: %v", keywords)
	}
	if contains(keywords, "beta") || contains(keywords, "ever") {
		t.Errorf("digit-adjacent fragment leaked into keywords: %v", keywords)
	}
	if !contains(keywords, "kubernetes") {
		t.Errorf("plain word missing from keywords: %v", keywords)
	}
}

func buildParagraphs(count, approxLen int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "Paragraph number %d. ", i)
		for sbLen := 0; sbLen < approxLen; sbLen += 30 {
			sb.WriteString("filler words occupy the space ")
		}
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
