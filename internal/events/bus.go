package events

import (
	"context"
	"sync"

	"oip/dpaccuracy/pkg/logger"
)

// Kind 事件类型
type Kind string

// 检查生命周期事件常量
const (
	KindCheckStarted   Kind = "check:started"
	KindCheckProgress  Kind = "check:progress"
	KindCheckCompleted Kind = "check:completed"
	KindCheckFailed    Kind = "check:failed"
)

// Event 事件接口（每种事件一个带标签的结构体）
type Event interface {
	Kind() Kind
}

// CheckStarted 检查启动事件
type CheckStarted struct {
	CheckID        string `json:"check_id"`
	OrganizationID string `json:"organization_id"`
	Scope          string `json:"scope"`
}

// Kind 实现 Event 接口
func (CheckStarted) Kind() Kind { return KindCheckStarted }

// CheckProgress 检查进度事件
type CheckProgress struct {
	CheckID   string `json:"check_id"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Kind 实现 Event 接口
func (CheckProgress) Kind() Kind { return KindCheckProgress }

// CheckCompleted 检查完成事件
type CheckCompleted struct {
	CheckID            string  `json:"check_id"`
	DiscrepanciesFound int     `json:"discrepancies_found"`
	AccuracyScore      float64 `json:"accuracy_score"`
}

// Kind 实现 Event 接口
func (CheckCompleted) Kind() Kind { return KindCheckCompleted }

// CheckFailed 检查失败事件
type CheckFailed struct {
	CheckID string `json:"check_id"`
	Error   string `json:"error"`
}

// Kind 实现 Event 接口
func (CheckFailed) Kind() Kind { return KindCheckFailed }

// Bus 进程内事件总线（按事件类型订阅）
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]chan Event
	logger logger.Logger
}

// NewBus 创建事件总线
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[Kind][]chan Event),
		logger: log,
	}
}

// Subscribe 订阅某类事件，返回只读 channel
// buffer 为订阅 channel 缓冲区大小
func (b *Bus) Subscribe(kind Kind, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], ch)

	return ch
}

// Publish 发布事件（非阻塞：订阅方缓冲区满则丢弃并告警）
// 监控侧信道不允许阻塞业务主流程
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Kind()]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warnf(ctx, "[Bus] Subscriber buffer full, dropping event: %s", ev.Kind())
		}
	}
}

// Close 关闭所有订阅 channel
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
		delete(b.subs, kind)
	}
}
