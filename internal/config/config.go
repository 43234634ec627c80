package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/recall/internal/cache"
	"github.com/saturnino-fabrica-de-software/recall/internal/decision"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Extractor
	ExtractorType      string `envconfig:"EXTRACTOR_TYPE" default:"deepface"`
	FaceDetector       string `envconfig:"FACE_DETECTOR" default:""`
	DeepFaceURL        string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel      string `envconfig:"DEEPFACE_MODEL" default:"ArcFace"`
	DeepFaceDetector   string `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	SpeakerURL         string `envconfig:"SPEAKER_URL" default:"http://localhost:5006"`
	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	SyntheticDimension int    `envconfig:"SYNTHETIC_DIMENSION" default:"512"`
	SyntheticSalt      string `envconfig:"SYNTHETIC_SALT" default:"face"`

	// Matching
	HighThreshold   float64 `envconfig:"MATCH_HIGH_THRESHOLD" default:"0.85"`
	MediumThreshold float64 `envconfig:"MATCH_MEDIUM_THRESHOLD" default:"0.70"`
	MinGap          float64 `envconfig:"MATCH_MIN_GAP" default:"0.08"`
	CandidateLimit  int     `envconfig:"CANDIDATE_LIMIT" default:"3"`

	// Timeouts and fan-out
	ExtractionTimeout time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"10s"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	FanOutLimit       int           `envconfig:"FAN_OUT_LIMIT" default:"8"`

	// Embedding cache
	NegativeCachePolicy string        `envconfig:"NEGATIVE_CACHE_POLICY" default:"ttl"`
	NegativeCacheTTL    time.Duration `envconfig:"NEGATIVE_CACHE_TTL" default:"10m"`
	DurableCache        bool          `envconfig:"DURABLE_CACHE" default:"true"`
	DurableCacheTTL     time.Duration `envconfig:"DURABLE_CACHE_TTL" default:"720h"`

	// Sample sources
	SampleRoot string `envconfig:"SAMPLE_ROOT" default:"."`
	S3Endpoint string `envconfig:"S3_ENDPOINT" default:""`

	// Webhooks
	WebhookURL         string `envconfig:"WEBHOOK_URL" default:""`
	WebhookSecret      string `envconfig:"WEBHOOK_SECRET" default:""`
	WebhookMaxAttempts int    `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values envconfig cannot check on its own.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cache.ParseNegativePolicy(c.NegativeCachePolicy); err != nil {
		errs = append(errs, err)
	}
	switch c.ExtractorType {
	case "deepface", "speaker", "synthetic":
	default:
		errs = append(errs, fmt.Errorf("unknown extractor type %q", c.ExtractorType))
	}
	switch c.FaceDetector {
	case "", "rekognition":
	default:
		errs = append(errs, fmt.Errorf("unknown face detector %q", c.FaceDetector))
	}
	if c.CandidateLimit <= 0 {
		errs = append(errs, errors.New("candidate limit must be positive"))
	}
	if c.FanOutLimit <= 0 {
		errs = append(errs, errors.New("fan-out limit must be positive"))
	}
	if c.ExtractionTimeout <= 0 || c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) Thresholds() decision.Thresholds {
	return decision.Thresholds{
		High:   c.HighThreshold,
		Medium: c.MediumThreshold,
		MinGap: c.MinGap,
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
