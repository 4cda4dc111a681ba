package presentation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avaldez/facturador-webhook/internal/application"
	"github.com/avaldez/facturador-webhook/internal/domain"
	"github.com/avaldez/facturador-webhook/internal/facturacion"
	"github.com/avaldez/facturador-webhook/internal/logger"
	"github.com/avaldez/facturador-webhook/internal/presentation/helpers"
)

const maxBodySize = 1 << 20

type FacturasHandler struct {
	svc *application.InvoicesService
}

func NewFacturasHandler(svc *application.InvoicesService) *FacturasHandler {
	return &FacturasHandler{svc: svc}
}

func (h *FacturasHandler) Register(r chi.Router) {
	r.Route("/api/facturas", func(r chi.Router) {
		r.Post("/", h.HandleWebhook)
		r.Get("/health", h.Health)
		r.Get("/registro", h.Registro)
		r.Get("/{serie}/{numero}", h.Get)
		r.Get("/{serie}/{numero}/estado", h.Estado)
		r.Put("/{serie}/{numero}/estado", h.CambiarEstado)
		r.Post("/{serie}/{numero}/enviar", h.Enviar)
		r.Post("/{serie}/{numero}/anular", h.Anular)
	})
}

// HandleWebhook is the pipeline entry point. The body is read once and the
// raw bytes go to the service so the signature covers exactly what arrived.
func (h *FacturasHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "no se pudo leer el cuerpo")
		return
	}

	res, err := h.svc.ProcessWebhook(r.Context(), body, r.Header.Get("x-hub-signature"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		*domain.SubmissionResult
	}{"success", res})
}

func (h *FacturasHandler) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"service": "facturador-webhook",
		"endpoints": []string{
			"POST /api/facturas",
			"GET /api/facturas/health",
			"GET /api/facturas/registro",
			"GET /api/facturas/{serie}/{numero}",
			"GET /api/facturas/{serie}/{numero}/estado",
			"PUT /api/facturas/{serie}/{numero}/estado",
			"POST /api/facturas/{serie}/{numero}/enviar",
			"POST /api/facturas/{serie}/{numero}/anular",
		},
	})
}

func (h *FacturasHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.docOp(w, r, h.svc.Get)
}

func (h *FacturasHandler) Estado(w http.ResponseWriter, r *http.Request) {
	h.docOp(w, r, h.svc.Estado)
}

func (h *FacturasHandler) Enviar(w http.ResponseWriter, r *http.Request) {
	h.docOp(w, r, h.svc.Enviar)
}

func (h *FacturasHandler) CambiarEstado(w http.ResponseWriter, r *http.Request) {
	serie, numero, ok := docParams(w, r)
	if !ok {
		return
	}

	var body struct {
		Estado string `json:"estado"`
	}
	if err := helpers.DecodeJSON(r.Body, &body); err != nil || body.Estado == "" {
		helpers.HttpError(w, http.StatusBadRequest, "estado is required")
		return
	}

	res, err := h.svc.CambiarEstado(r.Context(), serie, numero, body.Estado)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func (h *FacturasHandler) Anular(w http.ResponseWriter, r *http.Request) {
	serie, numero, ok := docParams(w, r)
	if !ok {
		return
	}

	var body struct {
		Motivo string `json:"motivo"`
	}
	if err := helpers.DecodeJSON(r.Body, &body); err != nil || body.Motivo == "" {
		helpers.HttpError(w, http.StatusBadRequest, "motivo is required")
		return
	}

	res, err := h.svc.Anular(r.Context(), serie, numero, body.Motivo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func (h *FacturasHandler) Registro(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	regs, err := h.svc.Registro(r.Context(), limit)
	if err != nil {
		logger.Warn("registro query failed", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "no se pudo consultar el registro")
		return
	}
	if regs == nil {
		// no registry configured, or no rows yet: an empty list either way
		regs = []domain.RegistroFactura{}
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"registros": regs})
}

func (h *FacturasHandler) docOp(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error)) {
	serie, numero, ok := docParams(w, r)
	if !ok {
		return
	}
	res, err := fn(r.Context(), serie, numero)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func docParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	serie := chi.URLParam(r, "serie")
	numero, err := strconv.ParseInt(chi.URLParam(r, "numero"), 10, 64)
	if err != nil || numero <= 0 {
		helpers.HttpError(w, http.StatusBadRequest, "numero invalido")
		return "", 0, false
	}
	return serie, numero, true
}

// writeDomainError maps the error taxonomy onto status codes. Transport and
// credential details never leak into the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	var authn *domain.AuthenticationError
	var valErr *domain.ValidationError
	var tfErr *domain.TransformationError
	var trErr *domain.TransientError
	var extAuth *domain.AuthError

	switch {
	case errors.As(err, &authn):
		helpers.HttpError(w, http.StatusUnauthorized, authn.Message)
	case errors.As(err, &valErr):
		helpers.HttpValidationError(w, http.StatusBadRequest, valErr.Message, valErr.Errors)
	case errors.As(err, &tfErr):
		helpers.HttpValidationError(w, http.StatusBadRequest, "orden no transformable", []string{tfErr.Message})
	case errors.Is(err, facturacion.ErrNotFound):
		helpers.HttpError(w, http.StatusNotFound, "documento no encontrado")
	case errors.As(err, &extAuth):
		logger.Error("credenciales del servicio de facturacion invalidas", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "error de configuracion del servicio de facturacion")
	case errors.As(err, &trErr):
		logger.Error("fallo transitorio agotado", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "el servicio de facturacion no esta disponible")
	default:
		logger.Error("error no clasificado", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "error interno")
	}
}
