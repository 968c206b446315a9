package interfaces

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"stockflow/internal/pkg/httpmw"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
)

// CreateOrderRequest 是 POST /orders 的请求体，ProductID 用指针区分缺失和 0
type CreateOrderRequest struct {
	ProductID *int64 `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在路由上注册所有接口
func (h *OrderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/orders", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/orders", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeSingleJSON(r.Body, &req); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("malformed order request")
		httpmw.WriteJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.ProductID == nil || req.Quantity <= 0 {
		logger.Ctx(r.Context()).Warn().Interface("product_id", req.ProductID).Int("quantity", req.Quantity).Msg("invalid order request")
		httpmw.WriteJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Invalid product ID or quantity"})
		return
	}

	order := h.service.CreateOrder(r.Context(), *req.ProductID, req.Quantity)
	if !order.Recorded() {
		// 结果没有写进订单日志，不能告诉客户端下单成功
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	httpmw.WriteJSON(w, r, http.StatusCreated, order)
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	httpmw.WriteJSON(w, r, http.StatusOK, orders)
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpmw.WriteJSON(w, r, http.StatusNotFound, errorResponse{Error: "Order not found"})
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	switch {
	case err == nil:
		httpmw.WriteJSON(w, r, http.StatusOK, order)
	case errors.Is(err, domain.ErrOrderNotFound):
		httpmw.WriteJSON(w, r, http.StatusNotFound, errorResponse{Error: "Order not found"})
	default:
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// decodeSingleJSON 要求请求体恰好是一个 JSON 值，后面跟着其他内容也算格式错误
func decodeSingleJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}
