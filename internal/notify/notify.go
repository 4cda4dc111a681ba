package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avaldez/facturador-webhook/internal/domain"
	"github.com/avaldez/facturador-webhook/internal/logger"
	"github.com/avaldez/facturador-webhook/internal/signature"
)

// Dispatcher posts outcome notifications back to the hub. Delivery is
// best-effort: the pipeline's HTTP response is already decided by the time a
// notification goes out, so failures here are logged and nothing else.
type Dispatcher struct {
	url     string
	signer  *signature.Verifier
	http    *http.Client
	timeout time.Duration
}

func NewDispatcher(url string, signer *signature.Verifier, timeout time.Duration) *Dispatcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		url:     url,
		signer:  signer,
		http:    &http.Client{},
		timeout: timeout,
	}
}

// Dispatch sends the notification in a detached goroutine. It never blocks
// the caller and never reports an error.
func (d *Dispatcher) Dispatch(res *domain.SubmissionResult, order *domain.OrderPayload) {
	if d.url == "" {
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
		Monto:     decimal.NewFromInt(order.Amount).Div(decimal.NewFromInt(100)),
	}

	go d.send(n)
}

func (d *Dispatcher) send(n domain.OutboundNotification) {
	body, err := json.Marshal(n)
	if err != nil {
		logger.Warn("notificacion no serializable", "err", err)
		return
	}

	// Own context: the inbound request may already be done.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		logger.Warn("notificacion no construible", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-hub-signature", d.signer.Sign(body))

	resp, err := d.http.Do(req)
	if err != nil {
		logger.Warn("notificacion al hub fallo", "order_id", n.OrderID, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("hub rechazo la notificacion", "order_id", n.OrderID, "status", resp.StatusCode)
		return
	}
	logger.Info("hub notificado", "order_id", n.OrderID, "serie", n.Serie, "numero", n.Numero)
}
