// internal/pkg/nacos/client.go
package nacos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/model"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"

	"stockflow/internal/pkg/config"
)

const defaultGroup = "DEFAULT_GROUP"

// Instance 是注册到 Nacos 或者从 Nacos 选出的一个服务实例
type Instance struct {
	ServiceName string
	IP          string
	Port        int
	Metadata    map[string]string
}

// BaseURL 实例的 http 地址，不带结尾的 /
func (i Instance) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", i.IP, i.Port)
}

// namingAPI 是这里用到的 naming_client.INamingClient 子集
type namingAPI interface {
	RegisterInstance(param vo.RegisterInstanceParam) (bool, error)
	DeregisterInstance(param vo.DeregisterInstanceParam) (bool, error)
	SelectOneHealthyInstance(param vo.SelectOneHealthInstanceParam) (*model.Instance, error)
	CloseClient()
}

// Client 注册本服务实例、发现依赖服务
type Client struct {
	naming namingAPI
	group  string
}

// ParseServerAddrs 解析 "ip1:port1,ip2:port2" 形式的地址列表
func ParseServerAddrs(addrs string) ([]constant.ServerConfig, error) {
	var servers []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, rawPort, ok := strings.Cut(addr, ":")
		if !ok || host == "" {
			return nil, errors.Errorf("nacos address %q must be host:port", addr)
		}
		port, err := strconv.ParseUint(rawPort, 10, 64)
		if err != nil {
			return nil, errors.Errorf("nacos address %q has a bad port", addr)
		}
		servers = append(servers, *constant.NewServerConfig(host, port))
	}
	if len(servers) == 0 {
		return nil, errors.New("no nacos server address configured")
	}
	return servers, nil
}

// New 按配置连接 Nacos，调用方负责 Close
func New(cfg config.NacosConfig) (*Client, error) {
	servers, err := ParseServerAddrs(cfg.ServerAddrs)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		zlog.Warn().Msg("nacos namespace not set, using public")
	}

	clientCfg := constant.NewClientConfig(
		constant.WithNamespaceId(cfg.Namespace),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/stockflow/nacos/log"),
		constant.WithCacheDir("/tmp/stockflow/nacos/cache"),
		constant.WithLogLevel("warn"),
	)
	naming, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  clientCfg,
		ServerConfigs: servers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create nacos naming client")
	}

	zlog.Info().Str("addrs", cfg.ServerAddrs).Str("namespace", cfg.Namespace).Msg("nacos naming client ready")
	return newClient(naming, cfg.Group), nil
}

func newClient(naming namingAPI, group string) *Client {
	if group == "" {
		group = defaultGroup
	}
	return &Client{naming: naming, group: group}
}

// Register 以临时实例注册，进程退出心跳中断后 Nacos 会自动摘除
func (c *Client) Register(inst Instance) error {
	ok, err := c.naming.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          inst.IP,
		Port:        uint64(inst.Port),
		ServiceName: inst.ServiceName,
		GroupName:   c.group,
		Metadata:    inst.Metadata,
		Weight:      1,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
	})
	if err != nil {
		return errors.Wrapf(err, "register %s to nacos", inst.ServiceName)
	}
	if !ok {
		return errors.Errorf("nacos rejected registration of %s", inst.ServiceName)
	}
	zlog.Info().Str("service", inst.ServiceName).Str("addr", inst.BaseURL()).Msg("registered to nacos")
	return nil
}

func (c *Client) Deregister(inst Instance) error {
	if _, err := c.naming.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          inst.IP,
		Port:        uint64(inst.Port),
		ServiceName: inst.ServiceName,
		GroupName:   c.group,
		Ephemeral:   true,
	}); err != nil {
		return errors.Wrapf(err, "deregister %s from nacos", inst.ServiceName)
	}
	zlog.Info().Str("service", inst.ServiceName).Msg("deregistered from nacos")
	return nil
}

// SelectInstance 按权重选一个健康实例
func (c *Client) SelectInstance(serviceName string) (Instance, error) {
	picked, err := c.naming.SelectOneHealthyInstance(vo.SelectOneHealthInstanceParam{
		ServiceName: serviceName,
		GroupName:   c.group,
	})
	if err != nil {
		return Instance{}, errors.Wrapf(err, "select healthy instance of %s", serviceName)
	}
	if picked == nil {
		return Instance{}, errors.Errorf("no healthy instance of %s", serviceName)
	}
	return Instance{
		ServiceName: serviceName,
		IP:          picked.Ip,
		Port:        int(picked.Port),
		Metadata:    picked.Metadata,
	}, nil
}

func (c *Client) Close() {
	c.naming.CloseClient()
}
