package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/pkg/logger"
)

// 不触发任何转发时 Forward 不访问 Redis，可用未连接的 client 构造
func testNotifier() *Notifier {
	return &Notifier{
		client:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}),
		channel: "accuracy_check_events",
		logger:  logger.NopLogger{},
	}
}

func TestForward_ReturnsOnContextCancel(t *testing.T) {
	n := testNotifier()
	bus := events.NewBus(logger.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		n.Forward(ctx, bus)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after context cancellation")
	}
}

func TestForward_ReturnsOnBusClose(t *testing.T) {
	n := testNotifier()
	bus := events.NewBus(logger.NopLogger{})

	done := make(chan struct{})
	go func() {
		n.Forward(context.Background(), bus)
		close(done)
	}()

	// 等订阅建立后再关闭总线
	time.Sleep(50 * time.Millisecond)
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after bus close")
	}
}
