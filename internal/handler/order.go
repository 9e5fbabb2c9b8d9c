package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
	"github.com/efreitasn/matchcore/internal/service"
	"github.com/efreitasn/matchcore/internal/store"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /markets/{pair}/orders.
type submitOrderRequest struct {
	Type  string  `json:"type"`
	Side  string  `json:"side"`
	Price *string `json:"price"`
	Size  int64   `json:"size"`
}

// executionResponse is the JSON response for a submitted order. Price is
// omitted for market orders. Error and Message are set when a market
// order ran out of liquidity; its fills are still reported.
type executionResponse struct {
	OrderID       uint64        `json:"order_id"`
	Pair          string        `json:"pair"`
	Type          string        `json:"type"`
	Side          string        `json:"side"`
	Price         *domain.Price `json:"price,omitempty"`
	Size          int64         `json:"size"`
	FilledSize    int64         `json:"filled_size"`
	RemainingSize int64         `json:"remaining_size"`
	Outcome       string        `json:"outcome"`
	Fills         []domain.Fill `json:"fills"`
	CreatedAt     string        `json:"created_at"`
	Error         string        `json:"error,omitempty"`
	Message       string        `json:"message,omitempty"`
}

type cancelResponse struct {
	Success       bool   `json:"success"`
	OrderID       uint64 `json:"order_id"`
	RemainingSize int64  `json:"remaining_size"`
}

type listOrdersResponse struct {
	Orders []store.OrderRecord `json:"orders"`
	Total  int                 `json:"total"`
	Page   int                 `json:"page"`
	Limit  int                 `json:"limit"`
}

// SubmitOrder handles POST /markets/{pair}/orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.orderSvc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		Pair:  chi.URLParam(r, "pair"),
		Type:  domain.OrderType(req.Type),
		Side:  domain.OrderSide(req.Side),
		Price: req.Price,
		Size:  req.Size,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := buildExecutionResponse(res.Pair, res.Execution)
	status := http.StatusCreated
	if res.Err != nil {
		status, resp.Error = statusFor(res.Err)
		resp.Message = res.Err.Error()
	}
	WriteJSON(w, status, resp)
}

// GetOrder handles GET /markets/{pair}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	rec, err := h.orderSvc.GetOrder(chi.URLParam(r, "pair"), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// CancelOrder handles DELETE /markets/{pair}/orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.CancelOrder(r.Context(), chi.URLParam(r, "pair"), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, cancelResponse{
		Success:       true,
		OrderID:       order.ID,
		RemainingSize: order.RemainingSize,
	})
}

// ListOrders handles GET /markets/{pair}/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	page, limit := 1, 20
	if n, ok, err := queryInt(r, "page"); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
		return
	} else if ok {
		page = n
	}
	if n, ok, err := queryInt(r, "limit"); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
		return
	} else if ok {
		limit = n
	}

	orders, total, err := h.orderSvc.ListOrders(chi.URLParam(r, "pair"), status, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, listOrdersResponse{
		Orders: orders,
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || id == 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func buildExecutionResponse(pair domain.TradingPair, exec *engine.Execution) executionResponse {
	o := exec.Order
	fills := exec.Fills
	if fills == nil {
		fills = []domain.Fill{}
	}

	resp := executionResponse{
		OrderID:       o.ID,
		Pair:          pair.String(),
		Type:          string(o.Type),
		Side:          string(o.Side),
		Size:          o.OriginalSize,
		FilledSize:    o.FilledSize(),
		RemainingSize: o.RemainingSize,
		Outcome:       string(exec.Outcome),
		Fills:         fills,
		CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if o.Type == domain.OrderTypeLimit {
		p := o.Price
		resp.Price = &p
	}
	return resp
}
