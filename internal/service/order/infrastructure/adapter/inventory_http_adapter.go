package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/service/order/port"
)

// InventoryHTTPAdapter 实现了 port.InventoryGateway 接口。
type InventoryHTTPAdapter struct {
	client   *httpclient.Client
	resolver EndpointResolver
}

// NewInventoryHTTPAdapter 创建一个新的库存服务适配器。
func NewInventoryHTTPAdapter(client *httpclient.Client, resolver EndpointResolver) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, resolver: resolver}
}

func (a *InventoryHTTPAdapter) CheckAvailability(ctx context.Context, productID int64, quantity int) (bool, error) {
	target, err := a.url(ctx, "/inventory/%d/check", productID)
	if err != nil {
		return false, err
	}

	var resp struct {
		Available bool `json:"available"`
	}
	if err := a.client.GetJSON(ctx, target, quantityParam(quantity), &resp); err != nil {
		return false, err
	}
	return resp.Available, nil
}

func (a *InventoryHTTPAdapter) GetProduct(ctx context.Context, productID int64) (port.Product, error) {
	target, err := a.url(ctx, "/inventory/%d", productID)
	if err != nil {
		return port.Product{}, err
	}

	var product port.Product
	if err := a.client.GetJSON(ctx, target, nil, &product); err != nil {
		return port.Product{}, err
	}
	return product, nil
}

// Reserve 400 是库存服务的业务拒绝，转换成 Success=false；其他非 2xx 都当作故障
func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, productID int64, quantity int) (port.ReservationResult, error) {
	target, err := a.url(ctx, "/inventory/%d/reserve", productID)
	if err != nil {
		return port.ReservationResult{}, err
	}

	var result port.ReservationResult
	err = a.client.PostJSON(ctx, target, quantityParam(quantity), nil, &result)
	if err == nil {
		return result, nil
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest {
		rejected := port.ReservationResult{Success: false}
		if jsonErr := json.Unmarshal(statusErr.Body, &rejected); jsonErr != nil {
			rejected.Message = string(statusErr.Body)
		}
		rejected.Success = false
		return rejected, nil
	}
	return port.ReservationResult{}, err
}

func (a *InventoryHTTPAdapter) url(ctx context.Context, pathFormat string, productID int64) (string, error) {
	base, err := a.resolver.Resolve(ctx)
	if err != nil {
		return "", errors.Wrap(err, "resolve inventory service")
	}
	return base + fmt.Sprintf(pathFormat, productID), nil
}

func quantityParam(quantity int) url.Values {
	return url.Values{"quantity": {strconv.Itoa(quantity)}}
}
