package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaldez/facturador-webhook/internal/domain"
	"github.com/avaldez/facturador-webhook/internal/logger"
	"github.com/avaldez/facturador-webhook/internal/signature"
	"github.com/avaldez/facturador-webhook/internal/transform"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type stubClient struct {
	created []*domain.Factura
	res     *domain.SubmissionResult
	err     error
}

func (s *stubClient) Create(ctx context.Context, f *domain.Factura) (*domain.SubmissionResult, error) {
	s.created = append(s.created, f)
	return s.res, s.err
}

func (s *stubClient) GetBySerieNumero(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.res, s.err
}

func (s *stubClient) GetStatus(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.res, s.err
}

func (s *stubClient) UpdateStatus(ctx context.Context, serie string, numero int64, estado string) (*domain.SubmissionResult, error) {
	return s.res, s.err
}

func (s *stubClient) SendToAuthority(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return s.res, s.err
}

func (s *stubClient) Cancel(ctx context.Context, serie string, numero int64, motivo string) (*domain.SubmissionResult, error) {
	return s.res, s.err
}

type stubNotifier struct {
	dispatched chan *domain.SubmissionResult
}

func (s *stubNotifier) Dispatch(res *domain.SubmissionResult, order *domain.OrderPayload) {
	s.dispatched <- res
}

type stubPublisher struct {
	published chan domain.OutboundNotification
	err       error
}

func (s *stubPublisher) PublishOutcome(ctx context.Context, n domain.OutboundNotification) error {
	s.published <- n
	return s.err
}

type stubRepo struct {
	saved chan *domain.RegistroFactura
	err   error
}

func (s *stubRepo) SaveRegistro(ctx context.Context, r *domain.RegistroFactura) error {
	s.saved <- r
	return s.err
}

func (s *stubRepo) GetByOrder(ctx context.Context, orderID int64, storeID string) (*domain.RegistroFactura, error) {
	return nil, nil
}

func (s *stubRepo) ListRecent(ctx context.Context, limit int) ([]domain.RegistroFactura, error) {
	return nil, nil
}

const testSecret = "secreto"

func newService(t *testing.T, client DocumentClient, notifier Notifier, pub OutcomePublisher, repo *stubRepo) *InvoicesService {
	t.Helper()
	tr, err := transform.New(transform.Defaults{
		Serie:           "F001",
		TipoComprobante: domain.ComprobanteFactura,
		Moneda:          "PEN",
		IGVRate:         "0.18",
		StoreID:         "1",
	})
	require.NoError(t, err)
	if repo == nil {
		return NewInvoicesService(signature.NewVerifier(testSecret), tr, client, notifier, pub, nil)
	}
	return NewInvoicesService(signature.NewVerifier(testSecret), tr, client, notifier, pub, repo)
}

func signedBody(t *testing.T) ([]byte, string) {
	t.Helper()
	ev := domain.WebhookEvent{
		EventType: domain.EventOrderPaid,
		Data: domain.OrderPayload{
			OrderID: 501,
			StoreID: "1",
			Amount:  15000,
			Items: []domain.OrderItem{
				{ProductID: 1, ProductName: "X", Quantity: 2, UnitPrice: 7500, Total: 15000},
			},
			PaidAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Customer: domain.Customer{
				TipoDocumento:   "6",
				NumeroDocumento: "20123456789",
				Denominacion:    "ACME SAC",
			},
		},
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body, signature.NewVerifier(testSecret).Sign(body)
}

func okResult() *domain.SubmissionResult {
	return &domain.SubmissionResult{
		Aceptada: true,
		ID:       "doc-1",
		Serie:    "F001",
		Numero:   101,
		Estado:   domain.EstadoPendiente,
	}
}

func TestProcessWebhookSideEffects(t *testing.T) {
	client := &stubClient{res: okResult()}
	notifier := &stubNotifier{dispatched: make(chan *domain.SubmissionResult, 1)}
	pub := &stubPublisher{published: make(chan domain.OutboundNotification, 1)}
	repo := &stubRepo{saved: make(chan *domain.RegistroFactura, 1)}

	svc := newService(t, client, notifier, pub, repo)

	body, sig := signedBody(t)
	res, err := svc.ProcessWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.Numero)

	require.Len(t, client.created, 1)
	assert.Equal(t, int64(501), client.created[0].Referencia.OrderID)

	select {
	case n := <-notifier.dispatched:
		assert.Equal(t, "doc-1", n.ID)
	case <-time.After(time.Second):
		t.Fatal("notifier never called")
	}

	select {
	case n := <-pub.published:
		assert.Equal(t, int64(501), n.OrderID)
		assert.Equal(t, domain.EstadoPendiente, n.Estado)
		// 15000 cents published as major units
		assert.Equal(t, "150", n.Monto.String())
	case <-time.After(time.Second):
		t.Fatal("outcome never published")
	}

	select {
	case reg := <-repo.saved:
		assert.Equal(t, int64(501), reg.OrderID)
		assert.Equal(t, int64(15000), reg.TotalCents)
		assert.Equal(t, domain.EstadoPendiente, reg.Estado)
	case <-time.After(time.Second):
		t.Fatal("registro never saved")
	}
}

func TestProcessWebhookPublisherErrorSwallowed(t *testing.T) {
	client := &stubClient{res: okResult()}
	notifier := &stubNotifier{dispatched: make(chan *domain.SubmissionResult, 1)}
	pub := &stubPublisher{published: make(chan domain.OutboundNotification, 1), err: errors.New("broker down")}

	svc := newService(t, client, notifier, pub, nil)

	body, sig := signedBody(t)
	res, err := svc.ProcessWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, res.Aceptada)
	<-pub.published
}

func TestProcessWebhookRegistroErrorSwallowed(t *testing.T) {
	client := &stubClient{res: okResult()}
	notifier := &stubNotifier{dispatched: make(chan *domain.SubmissionResult, 1)}
	repo := &stubRepo{saved: make(chan *domain.RegistroFactura, 1), err: errors.New("db down")}

	svc := newService(t, client, notifier, nil, repo)

	body, sig := signedBody(t)
	res, err := svc.ProcessWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.Numero)
	<-repo.saved
}

func TestProcessWebhookSubmissionFailureSkipsSideEffects(t *testing.T) {
	client := &stubClient{err: &domain.TransientError{Message: "caido"}}
	notifier := &stubNotifier{dispatched: make(chan *domain.SubmissionResult, 1)}

	svc := newService(t, client, notifier, nil, nil)

	body, sig := signedBody(t)
	_, err := svc.ProcessWebhook(context.Background(), body, sig)

	var te *domain.TransientError
	require.ErrorAs(t, err, &te)
	assert.Empty(t, notifier.dispatched)
}

func TestProcessWebhookBadSignatureShortCircuits(t *testing.T) {
	client := &stubClient{res: okResult()}
	svc := newService(t, client, &stubNotifier{dispatched: make(chan *domain.SubmissionResult, 1)}, nil, nil)

	body, _ := signedBody(t)
	_, err := svc.ProcessWebhook(context.Background(), body, "sha256=0000")

	var ae *domain.AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Empty(t, client.created)
}
