package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
)

// Extractor implements provider.Extractor using the DeepFace API. When a
// frame holds several faces the largest one is used.
type Extractor struct {
	client *Client
	model  string
}

func NewExtractor(config Config) *Extractor {
	return &Extractor{
		client: NewClient(config),
		model:  config.Model,
	}
}

func (e *Extractor) Name() string {
	return "deepface:" + e.model
}

func (e *Extractor) Extract(ctx context.Context, image []byte) (embedding.Vector, error) {
	a, err := e.Analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	return a.Vector, nil
}

func (e *Extractor) Analyze(ctx context.Context, image []byte) (*provider.Analysis, error) {
	if len(image) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	resp, err := e.client.Represent(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		var se *provider.StatusError
		if errors.As(err, &se) && isNoFace(se) {
			return nil, domain.ErrNoFaceDetected
		}
		return nil, fmt.Errorf("deepface represent: %w", err)
	}

	primary, ok := largest(resp.Results)
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}

	v, ok := embedding.Normalize(primary.Embedding)
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}

	return &provider.Analysis{
		Vector: v,
		Face: &provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(primary.FacialArea.X),
				Y:      float64(primary.FacialArea.Y),
				Width:  float64(primary.FacialArea.W),
				Height: float64(primary.FacialArea.H),
			},
			Confidence: primary.FaceConfidence,
		},
	}, nil
}

func largest(results []RepresentResult) (RepresentResult, bool) {
	if len(results) == 0 {
		return RepresentResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.FacialArea.Area() > best.FacialArea.Area() {
			best = r
		}
	}
	return best, true
}

var (
	_ provider.Extractor = (*Extractor)(nil)
	_ provider.Analyzer  = (*Extractor)(nil)
)
