// Package hashing provides an offline embedding provider based on feature
// hashing. It needs no model or network access, which makes it the default
// for local setups and tests. Texts that share words land close together;
// it does not capture meaning beyond that.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// DefaultDimensions is the vector size of the hashing-512 model.
const DefaultDimensions = 512

// Provider embeds text by hashing unigrams and bigrams into a fixed
// number of buckets. It is safe for concurrent use.
type Provider struct {
	dimensions   int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates a hashing provider with the given vector size.
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Provider{
		dimensions:   dimensions,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Embed returns the L2-normalised hashed term vector of text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make([]float64, p.dimensions)
	tokens := p.tokenize(text)
	for i, tok := range tokens {
		p.add(counts, tok, 1)
		if i > 0 {
			p.add(counts, tokens[i-1]+" "+tok, 0.5)
		}
	}

	norm := 0.0
	for i, c := range counts {
		if c == 0 {
			continue
		}
		// Sublinear term frequency keeps repeated words from dominating.
		w := math.Copysign(1+math.Log(math.Abs(c)), c)
		counts[i] = w
		norm += w * w
	}

	vec := make([]float32, p.dimensions)
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// add hashes feature into a bucket. One hash bit picks the sign so that
// collisions tend to cancel rather than accumulate.
func (p *Provider) add(counts []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(p.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	counts[bucket] += weight
}

func (p *Provider) tokenize(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := p.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// ModelName returns "hashing-<dimensions>".
func (p *Provider) ModelName() string {
	return fmt.Sprintf("hashing-%d", p.dimensions)
}

// Ping always succeeds.
func (p *Provider) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "so", "such", "into", "about", "than", "too", "very", "can", "will",
		"just", "do", "does", "what", "which", "how",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
