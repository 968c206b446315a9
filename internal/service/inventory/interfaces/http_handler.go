package interfaces

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"stockflow/internal/pkg/httpmw"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
)

// AvailabilityResponse 是 /check 的响应体
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// ReservationResponse 是 /reserve 的响应体
type ReservationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// InventoryHandler 封装了 inventory 服务的 HTTP 处理器
type InventoryHandler struct {
	service *application.InventoryApplicationService
}

func NewInventoryHandler(service *application.InventoryApplicationService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes 在路由上注册所有接口，id 只接受数字
func (h *InventoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/inventory", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/inventory/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/inventory/{id:[0-9]+}/check", h.handleCheck).Methods(http.MethodGet)
	r.HandleFunc("/inventory/{id:[0-9]+}/reserve", h.handleReserve).Methods(http.MethodPost)
}

func (h *InventoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	httpmw.WriteJSON(w, r, http.StatusOK, products)
}

func (h *InventoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpmw.WriteJSON(w, r, http.StatusNotFound, errorResponse{Error: "Product not found"})
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	switch {
	case err == nil:
		httpmw.WriteJSON(w, r, http.StatusOK, p)
	case errors.Is(err, domain.ErrProductNotFound):
		httpmw.WriteJSON(w, r, http.StatusNotFound, errorResponse{Error: "Product not found"})
	default:
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// handleCheck 缺失或非法的 quantity 一律视为不可用，不返回 4xx
func (h *InventoryHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, idOK := pathID(r)
	quantity, qtyOK := queryQuantity(r)
	if !idOK || !qtyOK {
		httpmw.WriteJSON(w, r, http.StatusOK, AvailabilityResponse{Available: false})
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), id, quantity)
	if err != nil {
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	httpmw.WriteJSON(w, r, http.StatusOK, AvailabilityResponse{Available: available})
}

func (h *InventoryHandler) handleReserve(w http.ResponseWriter, r *http.Request) {
	id, idOK := pathID(r)
	if !idOK {
		httpmw.WriteJSON(w, r, http.StatusBadRequest, ReservationResponse{Success: false, Message: "Product not found"})
		return
	}
	// 缺失或非法的 quantity 按 0 处理，由 Reserve 拒绝
	quantity, _ := queryQuantity(r)

	err := h.service.Reserve(r.Context(), id, quantity)
	switch {
	case err == nil:
		httpmw.WriteJSON(w, r, http.StatusOK, ReservationResponse{Success: true, Message: "Product reserved successfully"})
	case errors.Is(err, domain.ErrProductNotFound):
		httpmw.WriteJSON(w, r, http.StatusBadRequest, ReservationResponse{Success: false, Message: "Product not found"})
	case errors.Is(err, domain.ErrInsufficientStock):
		httpmw.WriteJSON(w, r, http.StatusBadRequest, ReservationResponse{Success: false, Message: "Insufficient quantity"})
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpmw.WriteJSON(w, r, http.StatusBadRequest, ReservationResponse{Success: false, Message: "Quantity must be a positive integer"})
	default:
		httpmw.WriteJSON(w, r, http.StatusInternalServerError, ReservationResponse{Success: false, Message: "Internal server error"})
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func queryQuantity(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("quantity")
	if raw == "" {
		return 0, false
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return q, true
}
