// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stockflow/internal/pkg/config"
	"stockflow/internal/pkg/httpmw"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/nacos"
	"stockflow/internal/pkg/tracing"
	"stockflow/internal/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

var (
	currentConfig *config.Config
	configOnce    sync.Once
	configErr     error
)

// Init 加载配置，只执行一次。路径取自 CONFIG_PATH，默认 config.yaml。
func Init() error {
	configOnce.Do(func() {
		currentConfig, configErr = config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	})
	return configErr
}

// GetCurrentConfig 返回 Init 加载的配置；Init 失败或未调用时返回默认配置
func GetCurrentConfig() *config.Config {
	if currentConfig == nil {
		return config.Default()
	}
	return currentConfig
}

// AppCtx 是交给各个服务注册路由时使用的上下文
type AppCtx struct {
	Router *mux.Router
	Config *config.Config
	Tracer trace.Tracer
	// Nacos 未启用时为 nil
	Nacos *nacos.Client

	hooks *[]func(context.Context) error
}

// OnShutdown 注册一个关停时执行的清理函数，按注册的逆序执行
func (a AppCtx) OnShutdown(fn func(context.Context) error) {
	*a.hooks = append(*a.hooks, fn)
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	// Port 是默认端口，配置了 app.port 时以配置为准
	Port             int
	RegisterHandlers func(appCtx AppCtx) error
}

// NewRouter 创建挂好通用中间件、/healthz 和 /metrics 的路由
func NewRouter(tracer trace.Tracer) *mux.Router {
	r := mux.NewRouter()
	r.Use(httpmw.RequestID, httpmw.Tracing(tracer), httpmw.Observe, httpmw.Recover)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	if err := Init(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, info, GetCurrentConfig()); err != nil {
		zlog.Fatal().Err(err).Str("service", info.ServiceName).Msg("service exited with error")
	}
}

// Run 启动服务并阻塞到 ctx 结束，然后按后进先出的顺序清理资源
func Run(ctx context.Context, info AppInfo, cfg *config.Config) error {
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	port := cfg.App.Port
	if port == 0 {
		port = info.Port
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return errors.Wrap(err, "initialize tracer provider")
	}
	tracer := tp.Tracer(info.ServiceName)

	var hooks []func(context.Context) error
	hooks = append(hooks, tp.Shutdown)

	appCtx := AppCtx{
		Router: NewRouter(tracer),
		Config: cfg,
		Tracer: tracer,
		hooks:  &hooks,
	}

	if cfg.Infra.Nacos.Enabled() {
		nc, err := nacos.New(cfg.Infra.Nacos)
		if err != nil {
			return errors.Wrap(err, "initialize nacos client")
		}
		appCtx.Nacos = nc
		hooks = append(hooks, func(context.Context) error { nc.Close(); return nil })
	}

	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(appCtx); err != nil {
			runHooks(hooks)
			return errors.Wrap(err, "register handlers")
		}
	}

	if appCtx.Nacos != nil {
		ip, err := utils.GetOutboundIP()
		if err != nil {
			runHooks(hooks)
			return err
		}
		self := nacos.Instance{ServiceName: info.ServiceName, IP: ip, Port: port}
		if err := appCtx.Nacos.Register(self); err != nil {
			runHooks(hooks)
			return err
		}
		nc := appCtx.Nacos
		hooks = append(hooks, func(context.Context) error { return nc.Deregister(self) })
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           appCtx.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info().Str("service", info.ServiceName).Int("port", port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Str("service", info.ServiceName).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// 先停止接收请求，再注销和释放依赖
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			zlog.Error().Err(err).Msg("error shutting down http server")
		}
		runHooksCtx(shutdownCtx, hooks)
		zlog.Info().Str("service", info.ServiceName).Msg("gracefully shut down")
		return err
	})
	return g.Wait()
}

func runHooks(hooks []func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	runHooksCtx(ctx, hooks)
}

func runHooksCtx(ctx context.Context, hooks []func(context.Context) error) {
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			zlog.Error().Err(err).Msg("shutdown hook failed")
		}
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
