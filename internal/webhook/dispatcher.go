package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
)

var ErrQueueFull = errors.New("webhook queue full")

// Observer is told the result of every delivery.
type Observer interface {
	ObserveWebhookDelivery(ok bool)
}

type Options struct {
	URL         string
	Secret      string
	MaxAttempts int
	QueueSize   int
	Timeout     time.Duration
	Backoff     time.Duration
	Observer    Observer
	Logger      *slog.Logger
}

// Dispatcher posts signed recognition events to a single endpoint from a
// bounded in-memory queue.
type Dispatcher struct {
	url         string
	secret      string
	maxAttempts int
	backoff     time.Duration
	client      *http.Client
	queue       chan job
	observer    Observer
	logger      *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Dispatcher{
		url:         opts.URL,
		secret:      opts.Secret,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		client:      &http.Client{Timeout: opts.Timeout},
		queue:       make(chan job, opts.QueueSize),
		observer:    opts.Observer,
		logger:      opts.Logger.With("component", "webhook"),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Publish enqueues a recognition event. A full queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, eventType string, event *domain.RecognitionEvent) {
	err := d.Enqueue(EventPayload{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      event,
		SubjectID: event.SubjectID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		d.logger.WarnContext(ctx, "webhook event dropped",
			"type", eventType,
			"event_id", event.ID,
			"error", err,
		)
	}
}

func (d *Dispatcher) Enqueue(event EventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case d.queue <- job{eventType: event.Type, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	d.logger.Info("webhook dispatcher started", "url", d.url)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("webhook dispatcher stopped")
			return
		case <-d.stopCh:
			d.logger.Info("webhook dispatcher stopped")
			return
		case j := <-d.queue:
			d.deliver(ctx, j)
		}
	}
}

// Stop ends Run and waits for the in-flight delivery to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
	<-d.done
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	var err error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := provider.Backoff(attempt, d.backoff, 5*time.Minute)
			select {
			case <-ctx.Done():
				return
			case <-d.stopCh:
				return
			case <-time.After(delay):
			}
		}

		if err = d.Send(ctx, j.eventType, j.payload); err == nil {
			d.observe(true)
			return
		}

		d.logger.Info("webhook delivery failed, retrying",
			"type", j.eventType,
			"attempt", attempt+1,
			"error", err,
		)
	}

	d.observe(false)
	d.logger.Warn("webhook delivery abandoned", "type", j.eventType, "attempts", d.maxAttempts, "error", err)
}

// Send performs one signed POST.
func (d *Dispatcher) Send(ctx context.Context, eventType string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(d.secret, payload))
	req.Header.Set("X-Recall-Event", eventType)
	req.Header.Set("User-Agent", "Recall-Webhook/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("post webhook: HTTP %d", resp.StatusCode)
	}

	return nil
}

func (d *Dispatcher) observe(ok bool) {
	if d.observer != nil {
		d.observer.ObserveWebhookDelivery(ok)
	}
}
