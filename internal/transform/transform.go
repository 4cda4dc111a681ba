package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

var cien = decimal.NewFromInt(100)

// Defaults hold the configured document parameters applied when the order
// does not specify its own.
type Defaults struct {
	Serie           string
	TipoComprobante int
	Moneda          string
	// IGVRate as a decimal string, e.g. "0.18".
	IGVRate string
	StoreID string
}

type Transformer struct {
	defaults Defaults
	rate     decimal.Decimal
	divisor  decimal.Decimal
}

func New(d Defaults) (*Transformer, error) {
	rate, err := decimal.NewFromString(d.IGVRate)
	if err != nil {
		return nil, fmt.Errorf("invalid IGV rate %q: %w", d.IGVRate, err)
	}
	return &Transformer{
		defaults: d,
		rate:     rate,
		divisor:  decimal.NewFromInt(1).Add(rate),
	}, nil
}

// Transform maps an order into the fiscal document schema. Pure, no I/O.
//
// Order amounts arrive in minor units with IGV included; the document splits
// them into valor (tax-exclusive) and precio (tax-inclusive). Intermediates
// stay in exact decimal form and each document field is rounded exactly once.
func (t *Transformer) Transform(order *domain.OrderPayload) (*domain.Factura, error) {
	if err := t.checkCustomer(&order.Customer); err != nil {
		return nil, err
	}
	if order.PaidAt.IsZero() {
		return nil, &domain.TransformationError{Message: "paid_at is required"}
	}

	items := make([]domain.FacturaItem, 0, len(order.Items))
	subtotal := decimal.Zero
	igv := decimal.Zero
	total := decimal.Zero

	for i, it := range order.Items {
		if it.Quantity <= 0 {
			return nil, &domain.TransformationError{Message: fmt.Sprintf("item %d: quantity must be positive", i)}
		}
		if it.UnitPrice <= 0 {
			return nil, &domain.TransformationError{Message: fmt.Sprintf("item %d: unit_price must be positive", i)}
		}

		precio := decimal.NewFromInt(it.UnitPrice).Div(cien)
		qty := decimal.NewFromInt(it.Quantity)

		lineTotal := precio.Mul(qty)
		lineSubtotal := lineTotal.Div(t.divisor).Round(2)
		lineIGV := lineTotal.Sub(lineSubtotal)

		items = append(items, domain.FacturaItem{
			Descripcion:    it.ProductName,
			Unidad:         "NIU",
			Cantidad:       it.Quantity,
			ValorUnitario:  precio.Div(t.divisor).Round(6),
			PrecioUnitario: precio,
			Subtotal:       lineSubtotal,
			IGV:            lineIGV,
			Total:          lineTotal,
		})

		subtotal = subtotal.Add(lineSubtotal)
		igv = igv.Add(lineIGV)
		total = total.Add(lineTotal)
	}

	descuento := decimal.NewFromInt(order.Discount).Div(cien)
	total = total.Sub(descuento)

	serie := order.Serie
	if serie == "" {
		serie = t.defaults.Serie
	}
	moneda := order.Currency
	if moneda == "" {
		moneda = t.defaults.Moneda
	}

	return &domain.Factura{
		TipoComprobante: t.defaults.TipoComprobante,
		Serie:           serie,
		// Numero 0 asks the external service for the next correlative.
		Numero:       0,
		FechaEmision: order.PaidAt.Format("02-01-2006"),
		HoraEmision:  order.PaidAt.Format("15:04:05"),
		Moneda:       moneda,
		Cliente:      order.Customer,
		Items:        items,
		TotalGravada: subtotal,
		TotalIGV:     igv,
		Descuento:    descuento,
		Total:        total,
		Referencia: domain.ReferenciaExterna{
			OrderID: order.OrderID,
			StoreID: storeOrDefault(order.StoreID, t.defaults.StoreID),
			PaidAt:  order.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	}, nil
}

func (t *Transformer) checkCustomer(c *domain.Customer) error {
	if c.Denominacion == "" {
		return &domain.TransformationError{Message: "customer denominacion is required"}
	}
	if c.NumeroDocumento == "" {
		return &domain.TransformationError{Message: "customer numero_documento is required"}
	}
	if !digitsOnly(c.NumeroDocumento) {
		return &domain.TransformationError{Message: "customer numero_documento must be numeric"}
	}

	switch c.TipoDocumento {
	case "6": // RUC
		if len(c.NumeroDocumento) != 11 {
			return &domain.TransformationError{Message: "RUC must have 11 digits"}
		}
	case "1": // DNI
		if len(c.NumeroDocumento) != 8 {
			return &domain.TransformationError{Message: "DNI must have 8 digits"}
		}
	default:
		return &domain.TransformationError{Message: fmt.Sprintf("unsupported tipo_documento %q", c.TipoDocumento)}
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func storeOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
