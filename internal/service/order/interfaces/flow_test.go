package interfaces

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/pkg/config"
	"stockflow/internal/pkg/httpclient"
	invapp "stockflow/internal/service/inventory/application"
	invinfra "stockflow/internal/service/inventory/infrastructure"
	invhttp "stockflow/internal/service/inventory/interfaces"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/infrastructure"
	"stockflow/internal/service/order/infrastructure/adapter"
)

// startFlow 启动真实的库存服务，订单服务通过 HTTP 调用它
func startFlow(t *testing.T) (*application.OrderApplicationService, *invinfra.MemoryStore) {
	tracer := noop.NewTracerProvider().Tracer("test")

	store := invinfra.NewMemoryStore(config.DefaultSeed())
	r := mux.NewRouter()
	invhttp.NewInventoryHandler(invapp.NewInventoryApplicationService(store, tracer)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	gateway := adapter.NewInventoryHTTPAdapter(httpclient.NewClient(tracer), adapter.StaticResolver{BaseURL: srv.URL})
	svc := application.NewOrderApplicationService(infrastructure.NewMemoryOrderLog(), gateway, nil, 5*time.Second, tracer)
	return svc, store
}

func stockOf(t *testing.T, store *invinfra.MemoryStore, id int64) int {
	p, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func TestFlow_ConfirmedOrderReservesStock(t *testing.T) {
	svc, store := startFlow(t)

	order := svc.CreateOrder(context.Background(), 1, 5)
	assert.True(t, order.Status.IsConfirmed())
	assert.Equal(t, "Laptop", order.ProductName)
	assert.Equal(t, 5, stockOf(t, store, 1))

	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, got)
}

func TestFlow_InsufficientStockLeavesInventoryUntouched(t *testing.T) {
	svc, store := startFlow(t)

	order := svc.CreateOrder(context.Background(), 1, 999999)
	assert.Equal(t, domain.Failed(domain.ReasonProductNotAvailable), order.Status)
	assert.Equal(t, domain.UnknownProductName, order.ProductName)
	assert.Equal(t, 10, stockOf(t, store, 1))
}

func TestFlow_UnknownProductIsRecorded(t *testing.T) {
	svc, _ := startFlow(t)

	order := svc.CreateOrder(context.Background(), 999, 1)
	assert.True(t, order.Status.IsFailed())
	assert.Equal(t, domain.ReasonProductNotAvailable, order.Status.Reason())
	assert.Greater(t, order.ID, int64(0))

	all, err := svc.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Order{order}, all)
}

func TestFlow_ConcurrentOrdersNeverOversell(t *testing.T) {
	svc, store := startFlow(t)

	var wg sync.WaitGroup
	orders := make([]domain.Order, 2)
	for i := range orders {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			orders[i] = svc.CreateOrder(context.Background(), 1, 6)
		}()
	}
	wg.Wait()

	confirmed := 0
	for _, o := range orders {
		if o.Status.IsConfirmed() {
			confirmed++
			continue
		}
		// 两个请求可能都通过检查，输的一方在预留时失败
		assert.Contains(t, []string{domain.ReasonProductNotAvailable, domain.ReasonReserveFailed}, o.Status.Reason())
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 4, stockOf(t, store, 1))
	assert.NotEqual(t, orders[0].ID, orders[1].ID)
}

func TestFlow_InventoryDown(t *testing.T) {
	srv := httptest.NewServer(mux.NewRouter())
	base := srv.URL
	srv.Close()

	tracer := noop.NewTracerProvider().Tracer("test")
	gateway := adapter.NewInventoryHTTPAdapter(httpclient.NewClient(tracer), adapter.StaticResolver{BaseURL: base})
	svc := application.NewOrderApplicationService(infrastructure.NewMemoryOrderLog(), gateway, nil, time.Second, tracer)

	order := svc.CreateOrder(context.Background(), 1, 1)
	require.True(t, order.Status.IsFailed())
	assert.Contains(t, order.Status.Reason(), domain.CommunicationErrorPrefix)
	assert.Equal(t, int64(1), order.ID)
}
