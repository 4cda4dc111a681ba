package domain

import (
	"time"

	"github.com/google/uuid"
)

// RegistroFactura is one processed-webhook outcome persisted for
// reconciliation. The registry is audit infrastructure; it is not consulted
// by the pipeline itself.
type RegistroFactura struct {
	ID         uuid.UUID `json:"id"`
	OrderID    int64     `json:"order_id"`
	StoreID    string    `json:"store_id"`
	Serie      string    `json:"serie"`
	Numero     int64     `json:"numero"`
	Estado     string    `json:"estado"`
	EnlacePDF  string    `json:"enlace_pdf,omitempty"`
	EnlaceXML  string    `json:"enlace_xml,omitempty"`
	TotalCents int64     `json:"total_cents"`
	Payload    []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
