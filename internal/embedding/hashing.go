package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hashing is an offline provider based on signed feature hashing of word
// tokens and character trigrams. Vectors are deterministic and L2
// normalized, so values sharing words or spelling land close together.
type Hashing struct {
	dim int
}

// NewHashing returns a feature-hashing provider of dim dimensions.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = Dimensions
	}
	return &Hashing{dim: dim}
}

// Embed returns ErrUnavailable for text without any letter or digit.
func (h *Hashing) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: no tokens in %q", ErrUnavailable, text)
	}

	acc := make([]float64, h.dim)
	for _, w := range words {
		h.add(acc, "w:"+w, 1)
		padded := []rune("#" + w + "#")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(acc, "t:"+string(padded[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, x := range acc {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make(Vector, h.dim)
	if norm == 0 {
		return out, nil
	}
	for i, x := range acc {
		out[i] = float32(x / norm)
	}
	return out, nil
}

func (h *Hashing) add(acc []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}
