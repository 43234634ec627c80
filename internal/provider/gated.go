package provider

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

// Gated runs a FaceDetector before the wrapped extractor and skips
// extraction entirely when no face is found.
type Gated struct {
	detector FaceDetector
	next     Extractor
}

func NewGated(detector FaceDetector, next Extractor) *Gated {
	return &Gated{detector: detector, next: next}
}

func (g *Gated) Name() string {
	return g.next.Name() + "+detector"
}

func (g *Gated) Extract(ctx context.Context, data []byte) (embedding.Vector, error) {
	a, err := g.Analyze(ctx, data)
	if err != nil {
		return nil, err
	}
	return a.Vector, nil
}

func (g *Gated) Analyze(ctx context.Context, data []byte) (*Analysis, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	faces, err := g.detector.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("gate: detect faces: %w", err)
	}

	primary, ok := Largest(faces)
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}

	a, err := Analyze(ctx, g.next, data)
	if err != nil {
		return nil, err
	}
	if a.Face == nil {
		a.Face = &primary
	}
	return a, nil
}

var (
	_ Extractor = (*Gated)(nil)
	_ Analyzer  = (*Gated)(nil)
)
