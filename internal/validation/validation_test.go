package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

func validEvent() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		EventType: domain.EventOrderPaid,
		Data: domain.OrderPayload{
			OrderID: 501,
			Amount:  15000,
			Items: []domain.OrderItem{
				{ProductID: 1, ProductName: "X", Quantity: 2, UnitPrice: 7500, Total: 15000},
			},
			PaidAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestValidateOK(t *testing.T) {
	assert.Empty(t, Validate(validEvent()))
}

func TestValidateMissingEventType(t *testing.T) {
	ev := validEvent()
	ev.EventType = ""

	errs := Validate(ev)
	require.Len(t, errs, 1)
	assert.Equal(t, "event_type is required", errs[0])
}

func TestValidateWrongEventType(t *testing.T) {
	ev := validEvent()
	ev.EventType = "pedido.creado"

	errs := Validate(ev)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "pedido.creado")
}

func TestValidateEmptyItems(t *testing.T) {
	ev := validEvent()
	ev.Data.Items = nil

	errs := Validate(ev)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "items")
}

func TestValidateNegativeAmount(t *testing.T) {
	ev := validEvent()
	ev.Data.Amount = -5

	errs := Validate(ev)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "amount")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	errs := Validate(&domain.WebhookEvent{})
	// event_type, items and amount all fail, in rule order
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "event_type")
	assert.Contains(t, errs[1], "items")
	assert.Contains(t, errs[2], "amount")
}
