// Package speaker extracts voice embeddings from a TitaNet-style speaker
// embedding service.
package speaker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
)

var (
	ErrSpeakerUnavailable = errors.New("speaker embedding service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from speaker service")
)

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	Format       string
	RetryCount   int
	RetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:5006",
		Timeout:      30 * time.Second,
		Format:       "m4a",
		RetryCount:   2,
		RetryBackoff: time.Second,
	}
}

// EmbedRequest for POST /embed
type EmbedRequest struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

// EmbedResponse from POST /embed. An empty embedding means the clip was too
// short or silent.
type EmbedResponse struct {
	Embedding  []float64 `json:"embedding"`
	DurationMs int       `json:"duration_ms"`
}

type Extractor struct {
	httpClient *http.Client
	config     Config
}

func NewExtractor(config Config) *Extractor {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	if config.Format == "" {
		config.Format = "m4a"
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

func (e *Extractor) Name() string {
	return "speaker:titanet"
}

func (e *Extractor) Extract(ctx context.Context, audio []byte) (embedding.Vector, error) {
	if len(audio) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	req := EmbedRequest{
		Audio:  base64.StdEncoding.EncodeToString(audio),
		Format: e.config.Format,
	}

	var resp EmbedResponse
	err := provider.Retry(ctx, e.config.RetryCount, e.config.RetryBackoff, ErrSpeakerUnavailable, func() error {
		return e.post(ctx, "/embed", req, &resp)
	})
	if err != nil {
		var se *provider.StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnprocessableEntity {
			return nil, domain.ErrNoFaceDetected
		}
		return nil, fmt.Errorf("speaker embed: %w", err)
	}

	v, ok := embedding.Normalize(resp.Embedding)
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}
	return v, nil
}

func (e *Extractor) post(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &provider.StatusError{Service: "speaker", Status: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

var _ provider.Extractor = (*Extractor)(nil)
