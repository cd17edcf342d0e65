// Package policy loads the HR policy document and answers queries against it
// with scored keyword retrieval.
package policy

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Index holds the chunked policy document. Construction does all the work;
// after that the index is read-only and safe for concurrent Search calls.
type Index struct {
	chunks []chunk
}

type chunk struct {
	heading string
	text    string
	tokens  map[string]int // lowercase term frequencies
}

// searchResult holds a scored chunk match.
type searchResult struct {
	chunk chunk
	score float64
}

// LoadIndex reads a plain-text policy document and builds the index.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy document: %w", err)
	}
	return NewIndex(string(data)), nil
}

// NewIndex builds an index from document text. Chunks are paragraphs
// separated by blank lines; a single-line paragraph followed by a longer one
// is treated as that chunk's heading.
func NewIndex(text string) *Index {
	idx := &Index{}

	paragraphs := splitParagraphs(text)
	heading := ""
	for _, p := range paragraphs {
		if isHeading(p) {
			heading = p
			continue
		}
		body := p
		if heading != "" {
			body = heading + "\n" + p
		}
		idx.chunks = append(idx.chunks, chunk{
			heading: heading,
			text:    body,
			tokens:  termFrequencies(p),
		})
	}
	return idx
}

// Len returns the number of chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Text returns the full document reassembled from its chunks.
func (idx *Index) Text() string {
	parts := make([]string, len(idx.chunks))
	for i, c := range idx.chunks {
		parts[i] = c.text
	}
	return strings.Join(parts, "\n\n")
}

// Search returns the k best-matching chunks for the query, best first.
// Chunks with no keyword overlap are never returned.
func (idx *Index) Search(query string, k int) []string {
	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil
	}

	var results []searchResult
	for _, c := range idx.chunks {
		score := scoreChunk(c, keywords)
		if score > 0 {
			results = append(results, searchResult{chunk: c, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.chunk.text
	}
	return out
}

// scoreChunk scores a chunk against query keywords. Heading matches weigh
// more than body matches; repeated body terms add diminishing weight.
func scoreChunk(c chunk, keywords []string) float64 {
	var score float64
	headingLower := strings.ToLower(c.heading)

	for _, kw := range keywords {
		if headingLower != "" && strings.Contains(headingLower, kw) {
			score += 3.0
		}
		if n := c.tokens[kw]; n > 0 {
			score += 1.0 + 0.25*float64(n-1)
		}
	}
	return score
}

// splitParagraphs breaks text on blank lines, trimming each paragraph.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isHeading treats short single-line paragraphs as section headings.
func isHeading(p string) bool {
	if strings.Contains(p, "\n") {
		return false
	}
	return len(strings.Fields(p)) <= 8 && !strings.HasSuffix(p, ".")
}

// tokenize splits a string into unique lowercase keywords.
func tokenize(s string) []string {
	words := strings.Fields(strings.ToLower(s))
	unique := make(map[string]struct{}, len(words))
	var result []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()[]{}")
		if len(w) < 2 {
			continue
		}
		if _, ok := unique[w]; !ok {
			unique[w] = struct{}{}
			result = append(result, w)
		}
	}
	return result
}

// termFrequencies counts lowercase terms in a paragraph.
func termFrequencies(p string) map[string]int {
	freq := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(p)) {
		w = strings.Trim(w, ".,!?;:'\"()[]{}")
		if len(w) < 2 {
			continue
		}
		freq[w]++
	}
	return freq
}
