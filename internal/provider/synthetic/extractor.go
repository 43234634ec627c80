// Package synthetic derives embeddings from a hash chain over the input
// bytes. Equal inputs always map to the same vector, which makes it useful
// for development and tests where no model service is running.
package synthetic

import (
	"context"
	"crypto/sha256"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
)

const DefaultDimension = 512

// Extractor implementa provider.Extractor sem modelo, para testes e desenvolvimento
type Extractor struct {
	dimension int
	salt      []byte
}

func New(dimension int, salt string) *Extractor {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Extractor{dimension: dimension, salt: []byte(salt)}
}

func (e *Extractor) Name() string {
	return "synthetic"
}

func (e *Extractor) Dimension() int {
	return e.dimension
}

// Extract treats empty input as a frame without a subject.
func (e *Extractor) Extract(ctx context.Context, data []byte) (embedding.Vector, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, ok := embedding.Normalize(e.values(data))
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}
	return v, nil
}

// values chains sha256(prev || salt) starting from sha256(data || salt),
// mapping each byte to [-1, 1].
func (e *Extractor) values(data []byte) []float64 {
	h := sha256.New()
	h.Write(data)
	h.Write(e.salt)
	cursor := h.Sum(nil)

	out := make([]float64, 0, e.dimension)
	for len(out) < e.dimension {
		h.Reset()
		h.Write(cursor)
		h.Write(e.salt)
		cursor = h.Sum(nil)

		for _, b := range cursor {
			out = append(out, (float64(b)/255.0)*2-1)
			if len(out) == e.dimension {
				break
			}
		}
	}
	return out
}

var _ provider.Extractor = (*Extractor)(nil)
