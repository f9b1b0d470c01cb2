package alerting

import "sync"

// 通知渠道常量（实际投递由外部系统完成，核心只登记能力与写通知日志）
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelWebhook = "webhook"
	ChannelInApp   = "in_app"
)

// ChannelRegistry 通知渠道注册表
// 启动时按已配置凭证填充，告警写通知日志时据此区分 queued/skipped
type ChannelRegistry struct {
	mu        sync.RWMutex
	available map[string]bool
}

// NewChannelRegistry 创建渠道注册表
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		available: make(map[string]bool),
	}
}

// Register 登记一个可用渠道
func (r *ChannelRegistry) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[name] = true
}

// Available 判断渠道是否可用
func (r *ChannelRegistry) Available(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[name]
}
