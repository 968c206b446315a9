package adapter

import (
	"context"
	"strings"

	"stockflow/internal/pkg/nacos"
)

// EndpointResolver 返回库存服务的 base URL，例如 http://10.0.0.5:8082
type EndpointResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticResolver 固定地址
type StaticResolver struct {
	BaseURL string
}

func (r StaticResolver) Resolve(context.Context) (string, error) {
	return strings.TrimRight(r.BaseURL, "/"), nil
}

// ServiceDiscoverer 由 nacos.Client 实现
type ServiceDiscoverer interface {
	SelectInstance(serviceName string) (nacos.Instance, error)
}

// NacosResolver 每次调用都从 Nacos 选一个健康实例
type NacosResolver struct {
	Discoverer  ServiceDiscoverer
	ServiceName string
}

func (r NacosResolver) Resolve(context.Context) (string, error) {
	inst, err := r.Discoverer.SelectInstance(r.ServiceName)
	if err != nil {
		return "", err
	}
	return inst.BaseURL(), nil
}
