package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

// Extractor define a interface para provedores de embedding (face ou voz)
type Extractor interface {
	// Extract retorna o embedding normalizado do sujeito principal da mídia.
	// Retorna domain.ErrNoFaceDetected quando nenhum sujeito é encontrado.
	Extract(ctx context.Context, data []byte) (embedding.Vector, error)

	// Name identifica a implementação nos eventos persistidos
	Name() string
}

// Analyzer is implemented by extractors that also locate the primary face.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*Analysis, error)
}

// FaceDetector reports the faces present in an image without embedding them.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// Analysis is an embedding plus, when known, where it came from.
type Analysis struct {
	Vector embedding.Vector
	Face   *DetectedFace
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

func (b BoundingBox) Domain() *domain.BoundingBox {
	return &domain.BoundingBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// Largest returns the face with the biggest bounding box. Earlier faces win
// ties. ok is false for an empty slice.
func Largest(faces []DetectedFace) (DetectedFace, bool) {
	if len(faces) == 0 {
		return DetectedFace{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.BoundingBox.Area() > best.BoundingBox.Area() {
			best = f
		}
	}
	return best, true
}

// Analyze uses ex as an Analyzer when it is one, otherwise falls back to a
// plain Extract with no face location.
func Analyze(ctx context.Context, ex Extractor, data []byte) (*Analysis, error) {
	if a, ok := ex.(Analyzer); ok {
		return a.Analyze(ctx, data)
	}
	v, err := ex.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	return &Analysis{Vector: v}, nil
}
