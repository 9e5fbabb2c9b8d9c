package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/service"
)

// MarketHandler handles HTTP requests for market endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

type createMarketRequest struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

type marketResponse struct {
	Pair  string `json:"pair"`
	Slug  string `json:"slug"`
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

type listMarketsResponse struct {
	Markets []marketResponse `json:"markets"`
}

type bookLevelResponse struct {
	Price      domain.Price `json:"price"`
	Volume     int64        `json:"volume"`
	OrderCount int          `json:"order_count"`
}

type bookResponse struct {
	Pair       string              `json:"pair"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     *decimal.Decimal    `json:"spread"`
	LastSeq    uint64              `json:"last_seq"`
	SnapshotAt string              `json:"snapshot_at"`
}

type quoteLevelResponse struct {
	Price    domain.Price `json:"price"`
	Quantity int64        `json:"quantity"`
}

type quoteResponse struct {
	Pair              string               `json:"pair"`
	Side              string               `json:"side"`
	QuantityRequested int64                `json:"quantity_requested"`
	QuantityAvailable int64                `json:"quantity_available"`
	FullyFillable     bool                 `json:"fully_fillable"`
	EstimatedAvgPrice *decimal.Decimal     `json:"estimated_average_price"`
	EstimatedTotal    *decimal.Decimal     `json:"estimated_total"`
	PriceLevels       []quoteLevelResponse `json:"price_levels"`
	QuotedAt          string               `json:"quoted_at"`
}

type priceResponse struct {
	Pair           string           `json:"pair"`
	CurrentPrice   *decimal.Decimal `json:"current_price"`
	Window         string           `json:"window"`
	TradesInWindow int              `json:"trades_in_window"`
	LastTradeAt    *string          `json:"last_trade_at"`
}

type tradesResponse struct {
	Pair   string        `json:"pair"`
	Trades []domain.Fill `json:"trades"`
}

type eventsResponse struct {
	Pair      string         `json:"pair"`
	Events    []domain.Event `json:"events"`
	LastSeq   uint64         `json:"last_seq"`
	Truncated bool           `json:"truncated"`
}

func toMarketResponse(p domain.TradingPair) marketResponse {
	return marketResponse{Pair: p.String(), Slug: p.Slug(), Base: p.Base, Quote: p.Quote}
}

// ListMarkets handles GET /markets.
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	pairs := h.marketSvc.ListMarkets()
	resp := listMarketsResponse{Markets: make([]marketResponse, len(pairs))}
	for i, p := range pairs {
		resp.Markets[i] = toMarketResponse(p)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// CreateMarket handles POST /markets.
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pair, err := h.marketSvc.CreateMarket(req.Base, req.Quote)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toMarketResponse(pair))
}

// GetBook handles GET /markets/{pair}/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	var depth *int
	if n, ok, err := queryInt(r, "depth"); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
		return
	} else if ok {
		depth = &n
	}

	book, err := h.marketSvc.GetBook(r.Context(), chi.URLParam(r, "pair"), depth)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := bookResponse{
		Pair:       book.Pair.String(),
		Bids:       make([]bookLevelResponse, len(book.Bids)),
		Asks:       make([]bookLevelResponse, len(book.Asks)),
		Spread:     book.Spread,
		LastSeq:    book.LastSeq,
		SnapshotAt: book.SnapshotAt.UTC().Format(time.RFC3339Nano),
	}
	for i, pl := range book.Bids {
		resp.Bids[i] = bookLevelResponse{Price: pl.Price, Volume: pl.TotalVolume, OrderCount: pl.OrderCount}
	}
	for i, pl := range book.Asks {
		resp.Asks[i] = bookLevelResponse{Price: pl.Price, Volume: pl.TotalVolume, OrderCount: pl.OrderCount}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetQuote handles GET /markets/{pair}/quote.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	side := r.URL.Query().Get("side")
	size, err := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)
	if err != nil || size <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "size must be a positive integer")
		return
	}

	q, err := h.marketSvc.GetQuote(r.Context(), chi.URLParam(r, "pair"), domain.OrderSide(side), size)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := quoteResponse{
		Pair:              q.Pair.String(),
		Side:              string(q.Side),
		QuantityRequested: q.QuantityRequested,
		QuantityAvailable: q.QuantityAvailable,
		FullyFillable:     q.FullyFillable,
		EstimatedAvgPrice: q.EstimatedAvgPrice,
		EstimatedTotal:    q.EstimatedTotal,
		PriceLevels:       make([]quoteLevelResponse, len(q.PriceLevels)),
		QuotedAt:          q.QuotedAt.UTC().Format(time.RFC3339Nano),
	}
	for i, pl := range q.PriceLevels {
		resp.PriceLevels[i] = quoteLevelResponse{Price: pl.Price, Quantity: pl.Quantity}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetPrice handles GET /markets/{pair}/price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	p, err := h.marketSvc.GetPrice(chi.URLParam(r, "pair"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := priceResponse{
		Pair:           p.Pair.String(),
		CurrentPrice:   p.CurrentPrice,
		Window:         p.Window,
		TradesInWindow: p.TradesInWindow,
	}
	if p.LastTradeAt != nil {
		s := p.LastTradeAt.UTC().Format(time.RFC3339Nano)
		resp.LastTradeAt = &s
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetTrades handles GET /markets/{pair}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, ok, err := queryInt(r, "limit"); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
		return
	} else if ok {
		limit = n
	}

	tr, err := h.marketSvc.Trades(chi.URLParam(r, "pair"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradesResponse{Pair: tr.Pair.String(), Trades: tr.Trades})
}

// GetEvents handles GET /markets/{pair}/events.
func (h *MarketHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "since must be a non-negative integer")
			return
		}
		since = n
	}
	limit := 100
	if n, ok, err := queryInt(r, "limit"); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
		return
	} else if ok {
		limit = n
	}

	page, err := h.marketSvc.Events(chi.URLParam(r, "pair"), since, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, eventsResponse{
		Pair:      page.Pair.String(),
		Events:    page.Events,
		LastSeq:   page.LastSeq,
		Truncated: page.Truncated,
	})
}
