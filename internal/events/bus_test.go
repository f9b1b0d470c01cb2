package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/dpaccuracy/pkg/logger"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(logger.NopLogger{})
	defer bus.Close()

	completed := bus.Subscribe(KindCheckCompleted, 4)
	failed := bus.Subscribe(KindCheckFailed, 4)

	bus.Publish(context.Background(), CheckCompleted{CheckID: "c-1", AccuracyScore: 97.5})

	ev := <-completed
	got, ok := ev.(CheckCompleted)
	require.True(t, ok)
	assert.Equal(t, "c-1", got.CheckID)
	assert.Equal(t, 97.5, got.AccuracyScore)

	select {
	case <-failed:
		t.Fatal("event delivered to wrong subscription kind")
	default:
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(logger.NopLogger{})
	defer bus.Close()

	a := bus.Subscribe(KindCheckStarted, 1)
	b := bus.Subscribe(KindCheckStarted, 1)

	bus.Publish(context.Background(), CheckStarted{CheckID: "c-1"})

	assert.Equal(t, "c-1", (<-a).(CheckStarted).CheckID)
	assert.Equal(t, "c-1", (<-b).(CheckStarted).CheckID)
}

func TestBus_DropsOnFullBuffer(t *testing.T) {
	bus := NewBus(logger.NopLogger{})
	defer bus.Close()

	ch := bus.Subscribe(KindCheckProgress, 1)

	// 第二条事件缓冲区已满，必须丢弃而不是阻塞
	bus.Publish(context.Background(), CheckProgress{CheckID: "c-1", Processed: 1, Total: 2})
	bus.Publish(context.Background(), CheckProgress{CheckID: "c-1", Processed: 2, Total: 2})

	first := (<-ch).(CheckProgress)
	assert.Equal(t, 1, first.Processed)

	select {
	case ev := <-ch:
		t.Fatalf("expected second event to be dropped, got %+v", ev)
	default:
	}
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(logger.NopLogger{})
	ch := bus.Subscribe(KindCheckCompleted, 1)

	bus.Close()

	_, open := <-ch
	assert.False(t, open)
}
