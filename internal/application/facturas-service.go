package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avaldez/facturador-webhook/internal/domain"
	"github.com/avaldez/facturador-webhook/internal/logger"
	"github.com/avaldez/facturador-webhook/internal/repository"
	"github.com/avaldez/facturador-webhook/internal/signature"
	"github.com/avaldez/facturador-webhook/internal/transform"
	"github.com/avaldez/facturador-webhook/internal/validation"
)

// DocumentClient is the invoicing-service surface the pipeline needs.
type DocumentClient interface {
	Create(ctx context.Context, f *domain.Factura) (*domain.SubmissionResult, error)
	GetBySerieNumero(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error)
	GetStatus(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error)
	UpdateStatus(ctx context.Context, serie string, numero int64, estado string) (*domain.SubmissionResult, error)
	SendToAuthority(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error)
	Cancel(ctx context.Context, serie string, numero int64, motivo string) (*domain.SubmissionResult, error)
}

type Notifier interface {
	Dispatch(res *domain.SubmissionResult, order *domain.OrderPayload)
}

type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, n domain.OutboundNotification) error
}

// InvoicesService runs the webhook pipeline: verify → validate → transform →
// submit → notify. It owns the request contract; presentation only maps the
// error taxonomy onto status codes.
type InvoicesService struct {
	verifier    *signature.Verifier
	transformer *transform.Transformer
	client      DocumentClient
	notifier    Notifier

	// Optional side channels; nil when not configured.
	producer OutcomePublisher
	repo     repository.InvoiceRepo
}

func NewInvoicesService(
	verifier *signature.Verifier,
	transformer *transform.Transformer,
	client DocumentClient,
	notifier Notifier,
	producer OutcomePublisher,
	repo repository.InvoiceRepo,
) *InvoicesService {
	return &InvoicesService{
		verifier:    verifier,
		transformer: transformer,
		client:      client,
		notifier:    notifier,
		producer:    producer,
		repo:        repo,
	}
}

// ProcessWebhook handles one inbound "order paid" webhook. Any error before
// submission short-circuits the rest; side effects after a successful
// submission never change the outcome.
func (s *InvoicesService) ProcessWebhook(ctx context.Context, body []byte, sigHeader string) (*domain.SubmissionResult, error) {
	if err := s.verifier.Verify(body, sigHeader); err != nil {
		return nil, err
	}

	var ev domain.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &domain.ValidationError{
			Message: "cuerpo JSON invalido",
			Errors:  []string{err.Error()},
		}
	}

	if errs := validation.Validate(&ev); len(errs) > 0 {
		return nil, &domain.ValidationError{Message: "payload invalido", Errors: errs}
	}

	factura, err := s.transformer.Transform(&ev.Data)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Create(ctx, factura)
	if err != nil {
		return nil, err
	}

	logger.Info("factura emitida",
		"order_id", ev.Data.OrderID, "serie", res.Serie, "numero", res.Numero, "estado", res.Estado)

	s.notifier.Dispatch(res, &ev.Data)
	s.publishOutcome(res, &ev.Data)
	s.saveRegistro(res, &ev.Data)

	return res, nil
}

func (s *InvoicesService) publishOutcome(res *domain.SubmissionResult, order *domain.OrderPayload) {
	if s.producer == nil {
		return
	}
	n := domain.OutboundNotification{
		Evento:    "factura.emitida",
		FacturaID: res.ID,
		Serie:     res.Serie,
		Numero:    res.Numero,
		Estado:    res.Estado,
		EnlacePDF: res.EnlacePDF,
		EnlaceXML: res.EnlaceXML,
		OrderID:   order.OrderID,
		// Same major-unit amount the hub notification carries.
		Monto: decimal.NewFromInt(order.Amount).Div(decimal.NewFromInt(100)),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.producer.PublishOutcome(ctx, n); err != nil {
			logger.Warn("publicacion kafka fallo", "order_id", order.OrderID, "err", err)
		}
	}()
}

func (s *InvoicesService) saveRegistro(res *domain.SubmissionResult, order *domain.OrderPayload) {
	if s.repo == nil {
		return
	}
	payload, _ := json.Marshal(res)
	reg := &domain.RegistroFactura{
		OrderID:    order.OrderID,
		StoreID:    order.StoreID,
		Serie:      res.Serie,
		Numero:     res.Numero,
		Estado:     res.Estado,
		EnlacePDF:  res.EnlacePDF,
		EnlaceXML:  res.EnlaceXML,
		TotalCents: order.Amount - order.Discount,
		Payload:    payload,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.repo.SaveRegistro(ctx, reg); err != nil {
			logger.Warn("registro no persistido", "order_id", order.OrderID, "err", err)
		}
	}()
}

// Proxies for the document endpoints outside the webhook pipeline.

func (s *InvoicesService) Get(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.client.GetBySerieNumero(ctx, serie, numero)
}

func (s *InvoicesService) Estado(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.client.GetStatus(ctx, serie, numero)
}

func (s *InvoicesService) CambiarEstado(ctx context.Context, serie string, numero int64, estado string) (*domain.SubmissionResult, error) {
	return s.client.UpdateStatus(ctx, serie, numero, estado)
}

func (s *InvoicesService) Enviar(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.client.SendToAuthority(ctx, serie, numero)
}

func (s *InvoicesService) Anular(ctx context.Context, serie string, numero int64, motivo string) (*domain.SubmissionResult, error) {
	return s.client.Cancel(ctx, serie, numero, motivo)
}

func (s *InvoicesService) Registro(ctx context.Context, limit int) ([]domain.RegistroFactura, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListRecent(ctx, limit)
}
