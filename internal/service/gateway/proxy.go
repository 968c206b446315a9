// internal/service/gateway/proxy.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/pkg/httpmw"
	"stockflow/internal/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Upstream 是网关后面的一个服务，PathPrefix 下的请求原样转发给它
type Upstream struct {
	Name       string
	PathPrefix string
	Target     *url.URL
}

// ParseUpstream 校验下游地址，只接受 http/https 的绝对地址
func ParseUpstream(name, pathPrefix, rawURL string) (Upstream, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return Upstream{}, errors.Wrapf(err, "parse %s url", name)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Upstream{}, errors.Errorf("%s url %q must be an absolute http(s) url", name, rawURL)
	}
	return Upstream{Name: name, PathPrefix: pathPrefix, Target: u}, nil
}

// Gateway 是 order / inventory 两个服务前面的统一入口
type Gateway struct {
	upstreams []Upstream
	client    *httpclient.Client
}

func New(client *httpclient.Client, upstreams ...Upstream) *Gateway {
	return &Gateway{upstreams: upstreams, client: client}
}

// RegisterRoutes 为每个下游挂一个反向代理，另外提供 /readyz
func (g *Gateway) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/readyz", g.handleReady).Methods(http.MethodGet)
	for _, up := range g.upstreams {
		r.PathPrefix(up.PathPrefix).Handler(newReverseProxy(up))
	}
}

func newReverseProxy(up Upstream) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(up.Target)
			pr.SetXForwarded()
			// 追踪上下文和请求 ID 继续传给下游
			otel.GetTextMapPropagator().Inject(pr.In.Context(), propagation.HeaderCarrier(pr.Out.Header))
			if id := httpmw.RequestIDFromContext(pr.In.Context()); id != "" {
				pr.Out.Header.Set(httpmw.RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Ctx(r.Context()).Error().Err(err).Str("upstream", up.Name).Str("path", r.URL.Path).Msg("upstream request failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"Upstream unavailable"}`))
		},
	}
}

// handleReady 所有下游的 /healthz 都正常时才算就绪
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	down := make([]string, len(g.upstreams))
	var eg errgroup.Group
	for i, up := range g.upstreams {
		i, up := i, up
		eg.Go(func() error {
			var body struct {
				Status string `json:"status"`
			}
			if err := g.client.GetJSON(ctx, up.Target.String()+"/healthz", nil, &body); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("upstream", up.Name).Msg("upstream not ready")
				down[i] = up.Name
			}
			return nil
		})
	}
	_ = eg.Wait()

	var notReady []string
	for _, name := range down {
		if name != "" {
			notReady = append(notReady, name)
		}
	}

	resp := readinessResponse{Status: "ok"}
	status := http.StatusOK
	if len(notReady) > 0 {
		resp = readinessResponse{Status: "unavailable", NotReady: notReady}
		status = http.StatusServiceUnavailable
	}
	raw, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

type readinessResponse struct {
	Status   string   `json:"status"`
	NotReady []string `json:"notReady,omitempty"`
}
