// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是两个服务共用的配置结构，按 app / infra / 业务 三段组织。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Infra     InfraConfig     `yaml:"infra"`
	Inventory InventoryConfig `yaml:"inventory"`
	Order     OrderConfig     `yaml:"order"`
	Gateway   GatewayConfig   `yaml:"gateway"`
}

type AppConfig struct {
	// Port 为 0 时使用各服务自己的默认端口
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
}

type InfraConfig struct {
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

// Enabled 没有配置 Nacos 地址时，服务注册和发现都会被跳过。
func (c NacosConfig) Enabled() bool { return c.ServerAddrs != "" }

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	OrderOutcomeTopic string   `yaml:"orderOutcomeTopic"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// InventoryConfig 库存服务的业务配置
type InventoryConfig struct {
	// Backend 取值 memory | redis
	Backend string        `yaml:"backend"`
	Seed    []ProductSeed `yaml:"seed"`
}

type ProductSeed struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
}

// OrderConfig 订单服务的业务配置
type OrderConfig struct {
	InventoryBaseURL     string        `yaml:"inventoryBaseURL"`
	InventoryServiceName string        `yaml:"inventoryServiceName"`
	ProcessingTimeout    time.Duration `yaml:"processingTimeout"`
	// LogBackend 取值 memory | mysql
	LogBackend string `yaml:"logBackend"`
}

// GatewayConfig 入口网关转发的下游地址
type GatewayConfig struct {
	OrderBaseURL     string `yaml:"orderBaseURL"`
	InventoryBaseURL string `yaml:"inventoryBaseURL"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// DefaultSeed 是库存服务启动时的默认商品目录
func DefaultSeed() []ProductSeed {
	return []ProductSeed{
		{ID: 1, Name: "Laptop", Quantity: 10},
		{ID: 2, Name: "Mouse", Quantity: 50},
		{ID: 3, Name: "Keyboard", Quantity: 30},
	}
}

// Default 返回一份可以直接在本地运行的配置
func Default() *Config {
	return &Config{
		App: AppConfig{LogLevel: "info"},
		Infra: InfraConfig{
			Nacos: NacosConfig{Group: "DEFAULT_GROUP"},
			Kafka: KafkaConfig{OrderOutcomeTopic: "order-outcomes"},
		},
		Inventory: InventoryConfig{Backend: BackendMemory, Seed: DefaultSeed()},
		Order: OrderConfig{
			InventoryBaseURL:     "http://localhost:8082",
			InventoryServiceName: "inventory-service",
			ProcessingTimeout:    10 * time.Second,
			LogBackend:           BackendMemory,
		},
		Gateway: GatewayConfig{
			OrderBaseURL:     "http://localhost:8080",
			InventoryBaseURL: "http://localhost:8082",
		},
	}
}

// Load 先读取 YAML 文件（文件不存在时忽略），再用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查互相依赖的配置项
func (c *Config) Validate() error {
	switch c.Inventory.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Infra.Redis.Addr == "" {
			return errors.New("inventory backend redis requires infra.redis.addr")
		}
	default:
		return errors.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}

	switch c.Order.LogBackend {
	case BackendMemory:
	case BackendMySQL:
		if c.Infra.MySQL.DSN == "" {
			return errors.New("order log backend mysql requires infra.mysql.dsn")
		}
	default:
		return errors.Errorf("unknown order log backend %q", c.Order.LogBackend)
	}

	for _, p := range c.Inventory.Seed {
		if p.Quantity < 0 {
			return errors.Errorf("seed product %d has negative quantity", p.ID)
		}
	}
	if c.Order.ProcessingTimeout <= 0 {
		return errors.New("order.processingTimeout must be positive")
	}
	if c.Gateway.OrderBaseURL == "" || c.Gateway.InventoryBaseURL == "" {
		return errors.New("gateway.orderBaseURL and gateway.inventoryBaseURL are required")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("APP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "APP_PORT")
		}
		cfg.App.Port = port
	}
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)

	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = splitList(v)
	}
	cfg.Infra.Kafka.OrderOutcomeTopic = getEnv("KAFKA_ORDER_OUTCOME_TOPIC", cfg.Infra.Kafka.OrderOutcomeTopic)
	cfg.Infra.MySQL.DSN = getEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)

	cfg.Inventory.Backend = getEnv("INVENTORY_BACKEND", cfg.Inventory.Backend)
	cfg.Order.InventoryBaseURL = getEnv("INVENTORY_BASE_URL", cfg.Order.InventoryBaseURL)
	cfg.Order.InventoryServiceName = getEnv("INVENTORY_SERVICE_NAME", cfg.Order.InventoryServiceName)
	cfg.Order.LogBackend = getEnv("ORDER_LOG_BACKEND", cfg.Order.LogBackend)
	if v, ok := os.LookupEnv("ORDER_PROCESSING_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "ORDER_PROCESSING_TIMEOUT")
		}
		cfg.Order.ProcessingTimeout = d
	}
	cfg.Gateway.OrderBaseURL = getEnv("GATEWAY_ORDER_BASE_URL", cfg.Gateway.OrderBaseURL)
	cfg.Gateway.InventoryBaseURL = getEnv("GATEWAY_INVENTORY_BASE_URL", cfg.Gateway.InventoryBaseURL)
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
