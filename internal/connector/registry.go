package connector

import (
	"fmt"
	"sync"
)

// Registry 连接器注册表（启动时按可用凭证填充，按 provider 查询）
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Connector
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Connector),
	}
}

// Register 注册连接器
func (r *Registry) Register(provider string, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider] = c
}

// Lookup 按 provider 查找连接器
func (r *Registry) Lookup(provider string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("connector not registered for provider: %s", provider)
	}
	return c, nil
}

// Providers 返回已注册的 provider 列表
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
