// Package chunker splits document text into bounded, overlapping chunks.
//
// Text is split at paragraph boundaries first, then at sentence
// boundaries, and hard-split at the size limit only when neither applies.
// Each chunk after the first is prefixed with the tail of the previous
// chunk, snapped forward to a sentence or paragraph start when one falls
// inside the overlap window. Removing each chunk's leading overlap and
// concatenating the rest reproduces the input exactly.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Default chunking parameters, in characters.
const (
	DefaultMaxChunkSize = 1000
	DefaultOverlapSize  = 200
	DefaultMinChunkSize = 100
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits text into chunks. It is safe for concurrent use.
type Chunker struct {
	maxChunkSize       int
	overlapSize        int
	minChunkSize       int
	preserveParagraphs bool
	preserveSentences  bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChunkSize sets the maximum chunk length in characters.
func WithMaxChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxChunkSize = size
		}
	}
}

// WithOverlapSize sets the overlap between consecutive chunks in characters.
func WithOverlapSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.overlapSize = size
		}
	}
}

// WithMinChunkSize sets the minimum length of new content per chunk.
func WithMinChunkSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.minChunkSize = size
		}
	}
}

// WithPreserveParagraphs enables splitting and overlap snapping at paragraph breaks.
func WithPreserveParagraphs(v bool) Option {
	return func(c *Chunker) { c.preserveParagraphs = v }
}

// WithPreserveSentences enables splitting and overlap snapping at sentence ends.
func WithPreserveSentences(v bool) Option {
	return func(c *Chunker) { c.preserveSentences = v }
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkSize:       DefaultMaxChunkSize,
		overlapSize:        DefaultOverlapSize,
		minChunkSize:       DefaultMinChunkSize,
		preserveParagraphs: true,
		preserveSentences:  true,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlapSize >= c.maxChunkSize {
		c.overlapSize = c.maxChunkSize / 4
	}
	// A chunk after the first holds at most bodyLimit new characters.
	if c.minChunkSize > c.bodyLimit() {
		c.minChunkSize = c.bodyLimit()
	}

	return c
}

// FromSettings creates a chunker from persisted settings.
func FromSettings(s domain.ChunkingSettings) *Chunker {
	return New(
		WithMaxChunkSize(s.MaxChunkSize),
		WithOverlapSize(s.OverlapSize),
		WithMinChunkSize(s.MinChunkSize),
		WithPreserveParagraphs(s.PreserveParagraphs),
		WithPreserveSentences(s.PreserveSentences),
	)
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Chunk splits text into ordered chunks belonging to docID.
func (c *Chunker) Chunk(ctx context.Context, docID, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ChunkingError{DocumentID: docID, Reason: "content is empty"}
	}
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return nil, &domain.ChunkingError{DocumentID: docID, Reason: "content is not valid text"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bodies := c.pack(c.split(text))

	chunks := make([]domain.Chunk, 0, len(bodies))
	prev := ""
	for i, body := range bodies {
		overlap := ""
		if i > 0 && c.overlapSize > 0 {
			overlap = c.overlapFrom(prev)
		}
		chunkText := overlap + body
		chunks = append(chunks, domain.Chunk{
			ParentDocID:      docID,
			Index:            i,
			Text:             chunkText,
			OverlapLen:       len(overlap),
			ApproxTokenCount: domain.EstimateTokens(chunkText),
		})
		prev = chunkText
	}

	return chunks, nil
}

func (c *Chunker) bodyLimit() int {
	return c.maxChunkSize - c.overlapSize
}

// split cuts text into units that partition it exactly: paragraphs, and
// sentences for paragraphs too long to fit a chunk.
func (c *Chunker) split(text string) []string {
	paragraphs := []string{text}
	if c.preserveParagraphs {
		paragraphs = splitParagraphs(text)
	}

	limit := c.bodyLimit()
	units := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if !c.preserveSentences || utf8.RuneCountInString(p) <= limit {
			units = append(units, p)
			continue
		}
		units = append(units, splitSentences(p)...)
	}
	return units
}

// pack greedily fills chunk bodies with units. The first body holds up to
// maxChunkSize characters, later ones leave room for the overlap. A unit
// that fits no chunk is hard-split at the size limit. A body is only
// closed early once it holds minChunkSize characters, and a short final
// body is rebalanced against its predecessor.
func (c *Chunker) pack(units []string) []string {
	var (
		bodies   []string
		cur      []rune
		capacity = c.maxChunkSize
	)
	flush := func() {
		bodies = append(bodies, string(cur))
		cur = nil
		capacity = c.bodyLimit()
	}

	for _, u := range units {
		rest := []rune(u)
		for len(rest) > 0 {
			room := capacity - len(cur)
			if len(rest) <= room {
				cur = append(cur, rest...)
				break
			}
			if len(cur) > 0 && len(cur) >= c.minChunkSize && len(rest) <= c.bodyLimit() {
				flush()
				continue
			}
			if room <= 0 {
				flush()
				continue
			}
			cur = append(cur, rest[:room]...)
			rest = rest[room:]
			flush()
		}
	}
	if len(cur) > 0 {
		flush()
	}

	return c.balanceTail(bodies)
}

// balanceTail lifts a final body shorter than minChunkSize to that size
// by moving runes from the end of the previous body, as long as the
// previous body keeps minChunkSize runes. Otherwise the tail is merged
// into the previous body when the result still fits its capacity, and
// left as a short final chunk when it does not.
func (c *Chunker) balanceTail(bodies []string) []string {
	n := len(bodies)
	if n < 2 {
		return bodies
	}
	prev, tail := []rune(bodies[n-2]), []rune(bodies[n-1])
	short := c.minChunkSize - len(tail)
	if short <= 0 {
		return bodies
	}

	if cut := len(prev) - short; cut >= c.minChunkSize {
		bodies[n-2] = string(prev[:cut])
		bodies[n-1] = string(prev[cut:]) + bodies[n-1]
		return bodies
	}

	capacity := c.bodyLimit()
	if n == 2 {
		capacity = c.maxChunkSize
	}
	if len(prev)+len(tail) <= capacity {
		bodies[n-2] += bodies[n-1]
		return bodies[:n-1]
	}
	return bodies
}

// overlapFrom returns the trailing overlap of the previous chunk text,
// starting at the first preserved boundary inside the window if any.
func (c *Chunker) overlapFrom(prev string) string {
	runes := []rune(prev)
	start := len(runes) - c.overlapSize
	if start < 0 {
		start = 0
	}
	if !c.preserveParagraphs && !c.preserveSentences {
		return string(runes[start:])
	}
	if start > 0 && c.isBoundary(runes, start) {
		return string(runes[start:])
	}
	for i := start + 1; i < len(runes); i++ {
		if c.isBoundary(runes, i) {
			return string(runes[i:])
		}
	}
	return string(runes[start:])
}

// isBoundary reports whether a sentence or paragraph starts at runes[i].
func (c *Chunker) isBoundary(runes []rune, i int) bool {
	if i <= 0 || i >= len(runes) || unicode.IsSpace(runes[i]) || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	newlines := 0
	j := i - 1
	for j >= 0 && unicode.IsSpace(runes[j]) {
		if runes[j] == '\n' {
			newlines++
		}
		j--
	}
	if c.preserveParagraphs && newlines >= 2 {
		return true
	}
	return c.preserveSentences && j >= 0 && isTerminator(runes[j])
}

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n\s*`)

// splitParagraphs splits after each blank-line run, keeping the
// whitespace with the preceding paragraph.
func splitParagraphs(text string) []string {
	locs := paragraphBreak.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// splitSentences splits after a terminator followed by whitespace,
// keeping the whitespace with the preceding sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			// "3.14", "e.g.x": not a sentence end
			continue
		}
		out = append(out, string(runes[start:j]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
