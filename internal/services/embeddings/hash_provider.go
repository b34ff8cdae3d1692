package embeddings

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/ternarybob/advisor/internal/interfaces"
)

// HashModel is the model version recorded for hash embeddings
const HashModel = "hash-v1"

// HashProvider is an offline embedder using signed feature hashing of word
// unigrams and bigrams. It needs no network and is fully deterministic.
type HashProvider struct {
	dimension int
}

// Compile-time assertion
var _ interfaces.EmbeddingProvider = (*HashProvider)(nil)

// NewHashProvider creates an offline hash embedder
func NewHashProvider(dimension int) *HashProvider {
	return &HashProvider{dimension: dimension}
}

func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = p.embed(t)
	}
	return vectors, nil
}

func (p *HashProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := tokenize(text)

	add := func(feature string, weight float32) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(p.dimension))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// tokenize lowercases text and splits it on anything that is not a letter or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (p *HashProvider) Model() string {
	return HashModel
}

func (p *HashProvider) Dimension() int {
	return p.dimension
}
