package domain

import "github.com/shopspring/decimal"

// Invoice lifecycle as reported by the external service. The service is the
// source of truth; estados are mirrored, never advanced locally.
const (
	EstadoPendiente = "PENDIENTE"
	EstadoEnviado   = "ENVIADO"
	EstadoAceptado  = "ACEPTADO"
	EstadoRechazado = "RECHAZADO"
	EstadoAnulado   = "ANULADO"
)

// Comprobante types, SUNAT catalog.
const (
	ComprobanteFactura = 1
	ComprobanteBoleta  = 2
)

// Factura is the fiscal invoice document in the external service's schema.
// Amounts are decimal major units, rounded once when the document is built.
type Factura struct {
	TipoComprobante int               `json:"tipo_de_comprobante"`
	Serie           string            `json:"serie"`
	Numero          int64             `json:"numero"`
	FechaEmision    string            `json:"fecha_de_emision"`
	HoraEmision     string            `json:"hora_de_emision"`
	Moneda          string            `json:"moneda"`
	Cliente         Customer          `json:"cliente"`
	Items           []FacturaItem     `json:"items"`
	TotalGravada    decimal.Decimal   `json:"total_gravada"`
	TotalIGV        decimal.Decimal   `json:"total_igv"`
	Descuento       decimal.Decimal   `json:"descuento_global"`
	Total           decimal.Decimal   `json:"total"`
	Referencia      ReferenciaExterna `json:"referencia_externa"`
}

type FacturaItem struct {
	Descripcion    string          `json:"descripcion"`
	Unidad         string          `json:"unidad_de_medida"`
	Cantidad       int64           `json:"cantidad"`
	ValorUnitario  decimal.Decimal `json:"valor_unitario"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	IGV            decimal.Decimal `json:"igv"`
	Total          decimal.Decimal `json:"total"`
}

// ReferenciaExterna links the document back to the originating order so the
// external side can be queried for duplicates before creating.
type ReferenciaExterna struct {
	OrderID int64  `json:"order_id"`
	StoreID string `json:"store_id"`
	PaidAt  string `json:"paid_at"`
}

// SubmissionResult is the outcome of any invoicing-service operation.
type SubmissionResult struct {
	Aceptada  bool     `json:"aceptada"`
	ID        string   `json:"id"`
	Serie     string   `json:"serie"`
	Numero    int64    `json:"numero"`
	Estado    string   `json:"estado"`
	EnlacePDF string   `json:"enlace_pdf,omitempty"`
	EnlaceXML string   `json:"enlace_xml,omitempty"`
	Errores   []string `json:"errores,omitempty"`
}

// OutboundNotification is the message posted back to the hub after a
// successful submission. Monto is in major currency units.
type OutboundNotification struct {
	Evento    string          `json:"evento"`
	FacturaID string          `json:"factura_id"`
	Serie     string          `json:"serie"`
	Numero    int64           `json:"numero"`
	Estado    string          `json:"estado"`
	EnlacePDF string          `json:"enlace_pdf,omitempty"`
	EnlaceXML string          `json:"enlace_xml,omitempty"`
	OrderID   int64           `json:"order_id"`
	Monto     decimal.Decimal `json:"monto"`
}
