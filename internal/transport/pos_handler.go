package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"scanlane/internal/catalog"
	"scanlane/internal/domain"
	custommiddleware "scanlane/internal/middleware"
	"scanlane/internal/session"
)

// POSHandler exposes the scan pipeline and cart ledger over HTTP.
type POSHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

func NewPOSHandler(sessions *session.Manager, logger *zap.Logger) *POSHandler {
	return &POSHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes attaches the POS routes under the authenticated group.
func (h *POSHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.Scan)
	r.Post("/cart/scan", h.ScanCart)
	r.Get("/cart", h.GetCart)
	r.Patch("/cart/items/{id}", h.UpdateItem)
	r.Delete("/cart/items/{id}", h.DeleteItem)
	r.Delete("/cart", h.ClearCart)
	r.Post("/checkout", h.Checkout)
}

type scanRequest struct {
	Source string `json:"source" validate:"required,oneof=keyboard camera"`
	Value  string `json:"value" validate:"required"`
}

// Scan feeds one raw input event into the session's normalizer. The
// normalizer decides asynchronously whether and when a token is
// forwarded, so the response is always 202.
func (h *POSHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	s := h.session(r)
	switch req.Source {
	case "camera":
		s.Normalizer.CodeDecoded(req.Value)
	default:
		s.Normalizer.TextChanged(req.Value)
	}

	custommiddleware.RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type scanCartRequest struct {
	Barcode string `json:"barcode" validate:"required,min=2"`
}

type scanCartResponse struct {
	ItemID string            `json:"item_id"`
	Cart   []domain.CartItem `json:"cart"`
	Total  float64           `json:"total"`
}

// ScanCart is the synchronous lookup path: resolve the barcode and
// mutate the cart in one request. A lookup miss leaves the cart
// untouched and maps to 404, recoverable by the operator.
func (h *POSHandler) ScanCart(w http.ResponseWriter, r *http.Request) {
	var req scanCartRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	s := h.session(r)
	itemID, err := s.ScanAndAdd(r.Context(), req.Barcode)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			custommiddleware.RespondWithError(w, http.StatusNotFound, "product not found: "+req.Barcode)
			return
		}
		h.logger.Error("Barcode lookup failed", zap.Error(err))
		custommiddleware.RespondWithError(w, http.StatusBadGateway, "catalog lookup failed")
		return
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, scanCartResponse{
		ItemID: itemID,
		Cart:   s.Ledger().Items(),
		Total:  s.Ledger().Total(),
	})
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Total float64           `json:"total"`
}

func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	custommiddleware.RespondWithJSON(w, http.StatusOK, cartResponse{
		Items: s.Ledger().Items(),
		Total: s.Ledger().Total(),
	})
}

type updateItemRequest struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// UpdateItem adjusts quantity and/or the line's snapshot price. Unknown
// item ids are no-ops by ledger contract; the current cart is returned
// either way.
func (h *POSHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req updateItemRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == nil && req.Price == nil {
		custommiddleware.RespondWithError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	s := h.session(r)
	if req.Quantity != nil {
		s.Ledger().SetQuantity(itemID, *req.Quantity)
	}
	if req.Price != nil {
		s.Ledger().SetPrice(itemID, *req.Price)
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, cartResponse{
		Items: s.Ledger().Items(),
		Total: s.Ledger().Total(),
	})
}

func (h *POSHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.Ledger().Remove(chi.URLParam(r, "id"))
	custommiddleware.RespondWithJSON(w, http.StatusOK, cartResponse{
		Items: s.Ledger().Items(),
		Total: s.Ledger().Total(),
	})
}

func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.Ledger().Clear()
	custommiddleware.RespondWithJSON(w, http.StatusOK, cartResponse{Items: []domain.CartItem{}, Total: 0})
}

type checkoutRequest struct {
	AmountTendered float64 `json:"amount_tendered" validate:"gte=0"`
	CustomerName   string  `json:"customer_name,omitempty"`
	LoyaltyPoints  int     `json:"loyalty_points,omitempty"`
}

// Checkout snapshots the cart into an immutable receipt document and
// clears the ledger.
func (h *POSHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	var customer *domain.Customer
	if req.CustomerName != "" {
		customer = &domain.Customer{Name: req.CustomerName}
	}

	s := h.session(r)
	doc, err := s.Checkout(req.AmountTendered, customer, req.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, session.ErrEmptyCart) || errors.Is(err, session.ErrInvalidTender) {
			custommiddleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Checkout failed", zap.Error(err))
		custommiddleware.RespondWithError(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, doc)
}

func (h *POSHandler) session(r *http.Request) *session.Session {
	id, _ := custommiddleware.GetSessionID(r.Context())
	return h.sessions.Get(id)
}
