package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/types"
)

func TestEventBus_BasicPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx := context.Background()

	events, cleanup := bus.Subscribe(ctx, Filter{}, 10)
	defer cleanup()

	event := Event{
		Type:       EventPipelineStarted,
		Timestamp:  time.Now(),
		WorkflowID: types.NewID(),
	}

	require.NoError(t, bus.Publish(ctx, event))

	select {
	case received := <-events:
		assert.Equal(t, event.Type, received.Type)
		assert.Equal(t, event.WorkflowID, received.WorkflowID)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestEventBus_FilterByEventType(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx := context.Background()

	events, cleanup := bus.Subscribe(ctx, Filter{
		Types: []EventType{EventPipelineCompleted},
	}, 10)
	defer cleanup()

	bus.Publish(ctx, Event{Type: EventPipelineStarted, Timestamp: time.Now()})
	bus.Publish(ctx, Event{Type: EventPipelineCompleted, Timestamp: time.Now()})

	select {
	case received := <-events:
		assert.Equal(t, EventPipelineCompleted, received.Type)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for filtered event")
	}

	// The pipeline:started event must not have been delivered.
	select {
	case unexpected := <-events:
		t.Fatalf("received unexpected event: %v", unexpected.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_FilterByWorkflowID(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx := context.Background()
	wanted := types.NewID()
	other := types.NewID()

	events, cleanup := bus.Subscribe(ctx, Filter{WorkflowID: wanted}, 10)
	defer cleanup()

	bus.Publish(ctx, Event{Type: EventTaskCreated, WorkflowID: other, Timestamp: time.Now()})
	bus.Publish(ctx, Event{Type: EventTaskCreated, WorkflowID: wanted, Timestamp: time.Now()})

	select {
	case received := <-events:
		assert.Equal(t, wanted, received.WorkflowID)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for filtered event")
	}
}

func TestEventBus_SlowSubscriberDropsEvents(t *testing.T) {
	var mu sync.Mutex
	var dropErrors int
	bus := NewEventBus(WithErrorHandler(func(err error, ctx map[string]any) {
		mu.Lock()
		dropErrors++
		mu.Unlock()
	}))
	defer bus.Close()

	ctx := context.Background()

	// Buffer of 1: second publish must be dropped, not block.
	_, cleanup := bus.Subscribe(ctx, Filter{}, 1)
	defer cleanup()

	require.NoError(t, bus.Publish(ctx, Event{Type: EventKPIUpdated, Timestamp: time.Now()}))
	require.NoError(t, bus.Publish(ctx, Event{Type: EventKPIUpdated, Timestamp: time.Now()}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, dropErrors)
}

func TestEventBus_OrderingPerWorkflow(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx := context.Background()
	workflowID := types.NewID()

	events, cleanup := bus.Subscribe(ctx, Filter{WorkflowID: workflowID}, 100)
	defer cleanup()

	stages := []string{"intake", "research", "analysis", "drafting"}
	for _, stage := range stages {
		require.NoError(t, bus.Publish(ctx, Event{
			Type:       EventPipelineStageCompleted,
			Timestamp:  time.Now(),
			WorkflowID: workflowID,
			Stage:      stage,
		}))
	}

	for _, want := range stages {
		select {
		case received := <-events:
			assert.Equal(t, want, received.Stage)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for stage %s", want)
		}
	}
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), Event{Type: EventPipelineStarted})
	assert.Error(t, err)

	// Close is idempotent.
	assert.NoError(t, bus.Close())
}

func TestEventBus_UnsubscribeRemovesSubscriber(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	_, cleanup := bus.Subscribe(context.Background(), Filter{}, 10)
	assert.Equal(t, 1, bus.SubscriberCount())

	cleanup()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventBus_ConcurrentPublishers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx := context.Background()
	events, cleanup := bus.Subscribe(ctx, Filter{}, 1000)
	defer cleanup()

	const publishers = 10
	const perPublisher = 20

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				bus.Publish(ctx, Event{
					Type:      EventTaskCompleted,
					Timestamp: time.Now(),
					Attrs:     map[string]any{"publisher": fmt.Sprintf("p%d", n)},
				})
			}
		}(i)
	}
	wg.Wait()

	received := 0
	timeout := time.After(2 * time.Second)
	for received < publishers*perPublisher {
		select {
		case <-events:
			received++
		case <-timeout:
			t.Fatalf("received %d of %d events", received, publishers*perPublisher)
		}
	}
}

func TestFilter_Matches(t *testing.T) {
	workflowID := types.NewID()

	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{
			name:   "empty filter matches everything",
			filter: Filter{},
			event:  Event{Type: EventKPIAlert},
			want:   true,
		},
		{
			name:   "type match",
			filter: Filter{Types: []EventType{EventKPIAlert, EventKPIUpdated}},
			event:  Event{Type: EventKPIAlert},
			want:   true,
		},
		{
			name:   "type mismatch",
			filter: Filter{Types: []EventType{EventKPIAlert}},
			event:  Event{Type: EventPipelineError},
			want:   false,
		},
		{
			name:   "workflow mismatch",
			filter: Filter{WorkflowID: workflowID},
			event:  Event{Type: EventKPIAlert, WorkflowID: types.NewID()},
			want:   false,
		},
		{
			name:   "type and workflow match",
			filter: Filter{Types: []EventType{EventPipelineError}, WorkflowID: workflowID},
			event:  Event{Type: EventPipelineError, WorkflowID: workflowID},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}
