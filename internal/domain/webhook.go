package domain

import "time"

// EventOrderPaid is the only webhook event the service handles.
const EventOrderPaid = "pedido.pagado"

type WebhookEvent struct {
	EventType string       `json:"event_type"`
	Data      OrderPayload `json:"data"`
}

// OrderPayload is the hub's order as delivered in the webhook body.
// All monetary fields are in minor currency units (cents), IGV included.
type OrderPayload struct {
	OrderID  int64       `json:"order_id"`
	StoreID  string      `json:"store_id"`
	Amount   int64       `json:"amount"`
	Discount int64       `json:"discount"`
	Currency string      `json:"currency"`
	Serie    string      `json:"serie"`
	Items    []OrderItem `json:"items"`
	PaidAt   time.Time   `json:"paid_at"`
	Customer Customer    `json:"customer"`
}

type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
}

// Customer identification as the fiscal schema expects it.
// TipoDocumento follows the SUNAT catalog: "6" = RUC, "1" = DNI.
type Customer struct {
	TipoDocumento   string `json:"tipo_documento"`
	NumeroDocumento string `json:"numero_documento"`
	Denominacion    string `json:"denominacion"`
	Direccion       string `json:"direccion"`
	Email           string `json:"email"`
}
