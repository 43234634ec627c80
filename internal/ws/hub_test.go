package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

type countObserver struct {
	last atomic.Int32
}

func (o *countObserver) SetWebsocketClients(n int) {
	o.last.Store(int32(n))
}

func startHub(t *testing.T, observer ClientObserver) *Hub {
	t.Helper()
	hub := NewHub(nil, observer)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newClient(hub *Hub, subjectID uuid.UUID, buffer int) *Client {
	return &Client{hub: hub, subjectID: subjectID, send: make(chan []byte, buffer)}
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	observer := &countObserver{}
	hub := startHub(t, observer)

	subjectID := uuid.New()
	client := newClient(hub, subjectID, 1)

	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return observer.last.Load() == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 0 }, time.Second, 5*time.Millisecond)

	// unregistering twice must not close send again
	hub.unregister <- client
	require.Eventually(t, func() bool { return observer.last.Load() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_PublishRecognition(t *testing.T) {
	hub := startHub(t, nil)

	subjectID := uuid.New()
	client := newClient(hub, subjectID, 10)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 1 }, time.Second, 5*time.Millisecond)

	event := &domain.RecognitionEvent{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Status:    domain.StatusIdentified,
		Band:      domain.BandHigh,
	}
	hub.Publish(context.Background(), domain.EventRecognitionCompleted, event)

	select {
	case msg := <-client.send:
		var got struct {
			Type string                  `json:"type"`
			Data domain.RecognitionEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, "recognition.completed", got.Type)
		assert.Equal(t, event.ID, got.Data.ID)
		assert.Equal(t, domain.StatusIdentified, got.Data.Status)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_SubjectIsolation(t *testing.T) {
	hub := startHub(t, nil)

	subject1 := uuid.New()
	subject2 := uuid.New()
	client1 := newClient(hub, subject1, 10)
	client2 := newClient(hub, subject2, 10)

	hub.register <- client1
	hub.register <- client2
	require.Eventually(t, func() bool {
		return hub.GetConnectedClients(subject1) == 1 && hub.GetConnectedClients(subject2) == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastToSubject(subject1, EventRecognitionResolved, map[string]string{"message": "only for subject1"})

	select {
	case <-client1.send:
	case <-time.After(time.Second):
		t.Fatal("client1 should receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive message from subject1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t, nil)

	subjectID := uuid.New()
	client := newClient(hub, subjectID, 0)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToSubject(subjectID, EventRecognitionCompleted, "x")

	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	subjectID := uuid.New()
	client := newClient(hub, subjectID, 1)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients(subjectID) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	_, open := <-client.send
	assert.False(t, open)
}
