package facturacion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avaldez/facturador-webhook/internal/domain"
	"github.com/avaldez/facturador-webhook/internal/logger"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Username    string
	Timeout     time.Duration
	AuthTimeout time.Duration
	// MaxRetries bounds retries of transient failures per operation.
	MaxRetries uint64
}

// Client talks to the external invoicing service. Estados come back exactly
// as the service reports them; the client never advances a lifecycle locally.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
	}
}

// Create submits a document. It is safe to call twice for the same order:
// the external reference (order id + store id) is checked first and an
// existing document short-circuits the POST. The check-then-create window is
// narrow but real; the external service's own uniqueness is the backstop.
func (c *Client) Create(ctx context.Context, f *domain.Factura) (*domain.SubmissionResult, error) {
	var res *domain.SubmissionResult
	err := c.withBackoff(ctx, func(ctx context.Context) error {
		// The lookup runs on every attempt: a POST that timed out after the
		// service created the document gets picked up here on the retry
		// instead of creating a duplicate.
		existing, e := c.GetByExternalRef(ctx, f.Referencia.OrderID, f.Referencia.StoreID)
		if e != nil {
			return e
		}
		if existing != nil {
			logger.Info("documento ya existe, se reutiliza", "order_id", f.Referencia.OrderID, "serie", existing.Serie, "numero", existing.Numero)
			res = existing
			return nil
		}
		res, e = c.doJSON(ctx, http.MethodPost, "/api/documentos", f)
		return e
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByExternalRef looks a document up by its originating order. Returns
// (nil, nil) when none exists.
func (c *Client) GetByExternalRef(ctx context.Context, orderID int64, storeID string) (*domain.SubmissionResult, error) {
	q := url.Values{}
	q.Set("external_id", strconv.FormatInt(orderID, 10))
	q.Set("store_id", storeID)

	res, err := c.doJSON(ctx, http.MethodGet, "/api/documentos?"+q.Encode(), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if res.ID == "" && res.Numero == 0 {
		return nil, nil
	}
	return res, nil
}

func (c *Client) GetBySerieNumero(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return c.doJSON(ctx, http.MethodGet, docPath(serie, numero), nil)
}

func (c *Client) GetStatus(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	return c.doJSON(ctx, http.MethodGet, docPath(serie, numero)+"/estado", nil)
}

func (c *Client) UpdateStatus(ctx context.Context, serie string, numero int64, estado string) (*domain.SubmissionResult, error) {
	body := map[string]string{"estado": estado}
	return c.doJSON(ctx, http.MethodPut, docPath(serie, numero)+"/estado", body)
}

// SendToAuthority asks the service to forward the document to the tax
// authority (PENDIENTE → ENVIADO on its side).
func (c *Client) SendToAuthority(ctx context.Context, serie string, numero int64) (*domain.SubmissionResult, error) {
	var res *domain.SubmissionResult
	err := c.withBackoff(ctx, func(ctx context.Context) error {
		var e error
		res, e = c.doJSON(ctx, http.MethodPost, docPath(serie, numero)+"/enviar", nil)
		return e
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Cancel(ctx context.Context, serie string, numero int64, motivo string) (*domain.SubmissionResult, error) {
	body := map[string]string{"motivo": motivo}
	return c.doJSON(ctx, http.MethodPost, docPath(serie, numero)+"/anular", body)
}

func docPath(serie string, numero int64) string {
	return "/api/documentos/" + url.PathEscape(serie) + "/" + strconv.FormatInt(numero, 10)
}

var ErrNotFound = errors.New("documento no encontrado")

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// withBackoff retries only TransientErrors, capped exponential.
func (c *Client) withBackoff(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(300*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		var te *domain.TransientError
		if errors.As(err, &te) {
			logger.Warn("fallo transitorio, reintentando", "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// doJSON performs one authenticated call under the per-call timeout and
// classifies the outcome. A 401 drops the cached token and retries the call
// once with a fresh one.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*domain.SubmissionResult, error) {
	res, err := c.call(ctx, method, path, body)
	var ae *domain.AuthError
	if errors.As(err, &ae) && ae.Message == "token expired" {
		c.invalidateToken()
		res, err = c.call(ctx, method, path, body)
	}
	return res, err
}

func (c *Client) call(ctx context.Context, method, path string, body any) (*domain.SubmissionResult, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Message: "llamada al servicio de facturacion fallo", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.TransientError{Message: "respuesta ilegible", Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var res domain.SubmissionResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, &domain.TransientError{Message: "respuesta invalida", Err: err}
		}
		res.Aceptada = true
		return &res, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &domain.AuthError{Message: "token expired"}

	case resp.StatusCode == http.StatusForbidden:
		return nil, &domain.AuthError{Message: "credenciales rechazadas por el servicio de facturacion"}

	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &domain.ValidationError{
			Message: "el servicio de facturacion rechazo el documento",
			Errors:  parseFieldErrors(raw),
		}

	default:
		return nil, &domain.TransientError{
			Message: fmt.Sprintf("el servicio de facturacion respondio %d", resp.StatusCode),
		}
	}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// ensureToken returns a cached bearer token, fetching a new one when absent
// or within a minute of expiry. The auth call runs under its own timeout,
// separate from document calls.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExp) > time.Minute {
		return c.token, nil
	}

	creds, _ := json.Marshal(map[string]string{
		"api_key":  c.cfg.APIKey,
		"username": c.cfg.Username,
	})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/auth/token", bytes.NewReader(creds))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.TransientError{Message: "autenticacion fallo", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &domain.AuthError{Message: "credenciales invalidas para el servicio de facturacion"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.TransientError{Message: fmt.Sprintf("autenticacion respondio %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.Token == "" {
		return "", &domain.TransientError{Message: "respuesta de autenticacion invalida", Err: err}
	}

	c.token = tr.Token
	if tr.ExpiresIn > 0 {
		c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		c.tokenExp = time.Now().Add(time.Hour)
	}
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

func parseFieldErrors(raw []byte) []string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return []string{string(raw)}
	}
	msgs := make([]string, 0, len(eb.Errors)+1)
	if eb.Message != "" {
		msgs = append(msgs, eb.Message)
	}
	for _, e := range eb.Errors {
		if e.Msg != "" {
			msgs = append(msgs, e.Msg)
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "documento rechazado")
	}
	return msgs
}
