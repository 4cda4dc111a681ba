package transform

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, err := New(Defaults{
		Serie:           "F001",
		TipoComprobante: domain.ComprobanteFactura,
		Moneda:          "PEN",
		IGVRate:         "0.18",
		StoreID:         "1",
	})
	require.NoError(t, err)
	return tr
}

func sampleOrder() *domain.OrderPayload {
	return &domain.OrderPayload{
		OrderID: 501,
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
	}
}

func TestTransformConcreteScenario(t *testing.T) {
	f, err := newTransformer(t).Transform(sampleOrder())
	require.NoError(t, err)

	require.Len(t, f.Items, 1)
	it := f.Items[0]
	assert.Equal(t, "75", it.PrecioUnitario.String())
	assert.Equal(t, "150", it.Total.String())
	// 150 / 1.18, rounded once
	assert.Equal(t, "127.12", it.Subtotal.String())
	assert.Equal(t, "22.88", it.IGV.String())

	assert.Equal(t, "127.12", f.TotalGravada.String())
	assert.Equal(t, "22.88", f.TotalIGV.String())
	assert.Equal(t, "150", f.Total.String())

	assert.Equal(t, "F001", f.Serie)
	assert.Equal(t, int64(0), f.Numero)
	assert.Equal(t, "01-01-2024", f.FechaEmision)
	assert.Equal(t, "10:00:00", f.HoraEmision)
	assert.Equal(t, int64(501), f.Referencia.OrderID)
	assert.Equal(t, "1", f.Referencia.StoreID)
}

func TestTransformTotalsProperty(t *testing.T) {
	order := sampleOrder()
	order.Items = []domain.OrderItem{
		{ProductName: "A", Quantity: 3, UnitPrice: 1999},
		{ProductName: "B", Quantity: 1, UnitPrice: 333},
		{ProductName: "C", Quantity: 7, UnitPrice: 12345},
	}
	order.Discount = 250

	f, err := newTransformer(t).Transform(order)
	require.NoError(t, err)

	require.Len(t, f.Items, len(order.Items))
	for i, it := range f.Items {
		assert.Equal(t, order.Items[i].ProductName, it.Descripcion, "order preserved")
		assert.True(t, it.Subtotal.Add(it.IGV).Equal(it.Total), "line %d: subtotal+igv != total", i)
	}

	sum := decimal.Zero
	for _, it := range f.Items {
		sum = sum.Add(it.Total)
	}
	assert.True(t, f.TotalGravada.Add(f.TotalIGV).Sub(f.Descuento).Equal(f.Total))
	assert.True(t, sum.Sub(f.Descuento).Equal(f.Total))
	assert.Equal(t, "2.5", f.Descuento.String())
}

func TestTransformCustomerErrors(t *testing.T) {
	tr := newTransformer(t)

	cases := []struct {
		name   string
		mutate func(*domain.OrderPayload)
	}{
		{"missing denominacion", func(o *domain.OrderPayload) { o.Customer.Denominacion = "" }},
		{"missing numero", func(o *domain.OrderPayload) { o.Customer.NumeroDocumento = "" }},
		{"RUC wrong length", func(o *domain.OrderPayload) { o.Customer.NumeroDocumento = "123" }},
		{"non-numeric documento", func(o *domain.OrderPayload) { o.Customer.NumeroDocumento = "2012345678X" }},
		{"unknown tipo", func(o *domain.OrderPayload) { o.Customer.TipoDocumento = "9" }},
		{"DNI wrong length", func(o *domain.OrderPayload) {
			o.Customer.TipoDocumento = "1"
			o.Customer.NumeroDocumento = "1234567890"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := sampleOrder()
			tc.mutate(order)

			_, err := tr.Transform(order)
			var te *domain.TransformationError
			require.ErrorAs(t, err, &te)
		})
	}
}

func TestTransformDNICustomer(t *testing.T) {
	order := sampleOrder()
	order.Customer.TipoDocumento = "1"
	order.Customer.NumeroDocumento = "12345678"

	_, err := newTransformer(t).Transform(order)
	require.NoError(t, err)
}

func TestTransformBadItems(t *testing.T) {
	tr := newTransformer(t)

	order := sampleOrder()
	order.Items[0].Quantity = 0
	_, err := tr.Transform(order)
	var te *domain.TransformationError
	require.ErrorAs(t, err, &te)

	order = sampleOrder()
	order.Items[0].UnitPrice = -10
	_, err = tr.Transform(order)
	require.ErrorAs(t, err, &te)
}

func TestTransformMissingPaidAt(t *testing.T) {
	order := sampleOrder()
	order.PaidAt = time.Time{}

	_, err := newTransformer(t).Transform(order)
	var te *domain.TransformationError
	require.ErrorAs(t, err, &te)
}

func TestTransformOrderOverrides(t *testing.T) {
	order := sampleOrder()
	order.Serie = "B001"
	order.Currency = "USD"
	order.StoreID = "7"

	f, err := newTransformer(t).Transform(order)
	require.NoError(t, err)
	assert.Equal(t, "B001", f.Serie)
	assert.Equal(t, "USD", f.Moneda)
	assert.Equal(t, "7", f.Referencia.StoreID)
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New(Defaults{IGVRate: "dieciocho"})
	require.Error(t, err)
}
