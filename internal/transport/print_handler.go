package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"scanlane/internal/domain"
	custommiddleware "scanlane/internal/middleware"
	"scanlane/internal/printing"
	"scanlane/internal/receipt"
)

// PrintHandler encodes receipt documents and hands them to the
// dispatcher.
type PrintHandler struct {
	dispatcher *printing.Dispatcher
	logger     *zap.Logger
}

func NewPrintHandler(dispatcher *printing.Dispatcher, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{dispatcher: dispatcher, logger: logger}
}

func (h *PrintHandler) RegisterRoutes(r chi.Router) {
	r.Post("/print/receipt", h.PrintReceipt)
	r.Post("/print/preview", h.Preview)
	r.Get("/print/printers", h.ListPrinters)
	r.Put("/print/default", h.SaveDefaultPrinter)
}

type printReceiptRequest struct {
	Document    domain.ReceiptDocument `json:"document" validate:"required"`
	Channel     string                 `json:"channel,omitempty" validate:"omitempty,oneof=native bridge system"`
	PrinterName string                 `json:"printer_name,omitempty"`
}

// PrintReceipt encodes and dispatches one receipt. Channel failures come
// back with enough detail for the operator to pick a fallback channel;
// the dispatcher never retries on its own.
func (h *PrintHandler) PrintReceipt(w http.ResponseWriter, r *http.Request) {
	var req printReceiptRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	payload, err := receipt.Encode(req.Document)
	if err != nil {
		if errors.Is(err, receipt.ErrInvalidDocument) {
			custommiddleware.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Receipt encoding failed", zap.Error(err))
		custommiddleware.RespondWithError(w, http.StatusInternalServerError, "failed to encode receipt")
		return
	}

	job := printing.Job{
		ID:          uuid.New().String(),
		Payload:     payload,
		Document:    req.Document,
		Channel:     req.Channel,
		PrinterName: req.PrinterName,
	}

	result, err := h.dispatcher.Dispatch(r.Context(), job)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, printing.ErrUnknownChannel):
			status = http.StatusBadRequest
		case errors.Is(err, printing.ErrChannelUnavailable):
			status = http.StatusServiceUnavailable
		case errors.Is(err, printing.ErrNoPrinter):
			status = http.StatusConflict
		}
		custommiddleware.RespondWithError(w, status, err.Error())
		return
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, result)
}

type previewRequest struct {
	Document domain.ReceiptDocument `json:"document" validate:"required"`
}

// Preview renders the structured on-screen view of a receipt without
// touching any printer.
func (h *PrintHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, receipt.BuildPreview(req.Document))
}

func (h *PrintHandler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := h.dispatcher.ListPrinters(r.Context())
	if err != nil {
		h.logger.Warn("Printer enumeration failed", zap.Error(err))
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string][]string{"printers": {}})
		return
	}
	custommiddleware.RespondWithJSON(w, http.StatusOK, map[string][]string{"printers": printers})
}

type defaultPrinterRequest struct {
	PrinterName string `json:"printer_name" validate:"required"`
}

func (h *PrintHandler) SaveDefaultPrinter(w http.ResponseWriter, r *http.Request) {
	var req defaultPrinterRequest
	if err := custommiddleware.DecodeAndValidate(r, &req); err != nil {
		custommiddleware.RespondWithValidationErrors(w, custommiddleware.FormatValidationErrors(err))
		return
	}

	if err := h.dispatcher.SaveDefaultPrinter(r.Context(), req.PrinterName); err != nil {
		h.logger.Error("Failed to save default printer", zap.Error(err))
		custommiddleware.RespondWithError(w, http.StatusInternalServerError, "failed to save default printer")
		return
	}
	custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"printer_name": req.PrinterName})
}
