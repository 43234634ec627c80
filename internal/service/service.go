package service

import (
	"context"
	"time"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// EventPublisher receives recognition lifecycle notifications. Publish must
// not block the caller.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, event *domain.RecognitionEvent)
}

// Publishers fans a notification out to every publisher in order.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, eventType string, event *domain.RecognitionEvent) {
	for _, pub := range p {
		pub.Publish(ctx, eventType, event)
	}
}

// Recorder collects engine metrics. *metrics.Manager implements it.
type Recorder interface {
	ObserveRecognition(status domain.Status, d time.Duration)
	ObserveExtractionFailure(stage string)
	ObserveTieBreak(ok bool)
	ObserveCentroidRebuild(ok bool, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRecognition(domain.Status, time.Duration) {}
func (nopRecorder) ObserveExtractionFailure(string)                 {}
func (nopRecorder) ObserveTieBreak(bool)                            {}
func (nopRecorder) ObserveCentroidRebuild(bool, time.Duration)      {}
