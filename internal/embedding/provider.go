// Package embedding maps vocabulary values to fixed-length vectors.
//
// Providers return ErrUnavailable (possibly wrapped) when no vector can be
// produced for a value; callers skip such values instead of failing.
package embedding

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Dimensions is the vector length stored in vocabulary tables.
const Dimensions = 384

// ErrUnavailable reports that no embedding could be produced for a value.
var ErrUnavailable = errors.New("embedding unavailable")

// Provider embeds a single string.
type Provider interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// Vector is an embedding. It binds as its pgvector text form ("[x,y,...]"),
// which the text-typed vector columns of other engines store verbatim.
type Vector []float32

// String returns the pgvector text form.
func (v Vector) String() string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return v.String(), nil
}

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai", "hashing" or "none".
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	// CacheSize bounds the number of cached values. Zero disables caching.
	CacheSize int
}

// New builds the configured provider, wrapped in a cache when CacheSize is
// positive. The result may implement io.Closer.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dim := cfg.Dimensions
	if dim <= 0 {
		dim = Dimensions
	}

	var p Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		p = NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, dim)
	case "hashing", "":
		p = NewHashing(dim)
		logger.Warn("hashing embeddings are not semantic; set embedding.provider=openai for similarity search",
			zap.String("provider", "hashing"))
	case "none":
		p = None{}
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}

	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", dim),
		zap.Int("cache_size", cfg.CacheSize),
	)

	if cfg.CacheSize > 0 {
		return NewCached(p, cfg.CacheSize)
	}
	return p, nil
}

// None never produces a vector.
type None struct{}

// Embed always returns ErrUnavailable.
func (None) Embed(context.Context, string) (Vector, error) {
	return nil, ErrUnavailable
}
