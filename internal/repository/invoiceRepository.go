package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

type InvoiceRepo interface {
	SaveRegistro(ctx context.Context, r *domain.RegistroFactura) error
	GetByOrder(ctx context.Context, orderID int64, storeID string) (*domain.RegistroFactura, error)
	ListRecent(ctx context.Context, limit int) ([]domain.RegistroFactura, error)
}

type InvoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(p *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: p}
}

// SaveRegistro upserts on (order_id, store_id): a webhook redelivered for an
// already-invoiced order refreshes the estado instead of adding a row.
func (p *InvoiceRepository) SaveRegistro(ctx context.Context, r *domain.RegistroFactura) error {
	return p.pool.QueryRow(ctx,
		`INSERT INTO facturas.registro
			(order_id, store_id, serie, numero, estado, enlace_pdf, enlace_xml, monto_total_cents, payload)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (order_id, store_id) DO UPDATE SET
			estado = EXCLUDED.estado,
			enlace_pdf = EXCLUDED.enlace_pdf,
			enlace_xml = EXCLUDED.enlace_xml,
			payload = EXCLUDED.payload
		 RETURNING id, created_at`,
		r.OrderID,
		r.StoreID,
		r.Serie,
		r.Numero,
		r.Estado,
		r.EnlacePDF,
		r.EnlaceXML,
		r.TotalCents,
		r.Payload,
	).Scan(&r.ID, &r.CreatedAt)
}

func (p *InvoiceRepository) GetByOrder(ctx context.Context, orderID int64, storeID string) (*domain.RegistroFactura, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, order_id, store_id, serie, numero, estado, enlace_pdf, enlace_xml, monto_total_cents, payload, created_at
		 FROM facturas.registro
		 WHERE order_id = $1 AND store_id = $2`,
		orderID, storeID,
	)

	var r domain.RegistroFactura
	err := scanRegistro(row, &r)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *InvoiceRepository) ListRecent(ctx context.Context, limit int) ([]domain.RegistroFactura, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, order_id, store_id, serie, numero, estado, enlace_pdf, enlace_xml, monto_total_cents, payload, created_at
		 FROM facturas.registro
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RegistroFactura
	for rows.Next() {
		var r domain.RegistroFactura
		if err := scanRegistro(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistro(row rowScanner, r *domain.RegistroFactura) error {
	var id uuid.UUID
	err := row.Scan(
		&id,
		&r.OrderID,
		&r.StoreID,
		&r.Serie,
		&r.Numero,
		&r.Estado,
		&r.EnlacePDF,
		&r.EnlaceXML,
		&r.TotalCents,
		&r.Payload,
		&r.CreatedAt,
	)
	r.ID = id
	return err
}
