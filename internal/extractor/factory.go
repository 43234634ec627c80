// Package extractor builds the configured embedding extractor.
package extractor

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/recall/internal/config"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider/speaker"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider/synthetic"
)

// Type defines supported extractor implementations
type Type string

const (
	// TypeDeepFace calls a DeepFace service for face embeddings
	TypeDeepFace Type = "deepface"
	// TypeSpeaker calls a speaker-embedding service for voice clips
	TypeSpeaker Type = "speaker"
	// TypeSynthetic hashes the input, for dev and tests
	TypeSynthetic Type = "synthetic"
)

// DetectorRekognition gates extraction on AWS Rekognition face detection.
const DetectorRekognition = "rekognition"

// New creates the Extractor selected by EXTRACTOR_TYPE, wrapped in a face
// detection gate when FACE_DETECTOR is set.
func New(ctx context.Context, cfg *config.Config) (provider.Extractor, error) {
	base, err := newBase(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.FaceDetector {
	case "":
		return base, nil
	case DetectorRekognition:
		rekogCfg := rekognition.DefaultConfig()
		rekogCfg.Region = cfg.AWSRegion
		detector, err := rekognition.NewDetector(ctx, rekogCfg)
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return provider.NewGated(detector, base), nil
	default:
		return nil, fmt.Errorf("unknown face detector: %s (supported: %s)", cfg.FaceDetector, DetectorRekognition)
	}
}

func newBase(cfg *config.Config) (provider.Extractor, error) {
	switch Type(cfg.ExtractorType) {
	case TypeDeepFace, "":
		dfCfg := deepface.DefaultConfig()
		if cfg.DeepFaceURL != "" {
			dfCfg.BaseURL = cfg.DeepFaceURL
		}
		if cfg.DeepFaceModel != "" {
			dfCfg.Model = cfg.DeepFaceModel
		}
		if cfg.DeepFaceDetector != "" {
			dfCfg.Detector = cfg.DeepFaceDetector
		}
		return deepface.NewExtractor(dfCfg), nil

	case TypeSpeaker:
		spCfg := speaker.DefaultConfig()
		if cfg.SpeakerURL != "" {
			spCfg.BaseURL = cfg.SpeakerURL
		}
		return speaker.NewExtractor(spCfg), nil

	case TypeSynthetic:
		return synthetic.New(cfg.SyntheticDimension, cfg.SyntheticSalt), nil

	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: %s, %s, %s)",
			cfg.ExtractorType, TypeDeepFace, TypeSpeaker, TypeSynthetic)
	}
}
