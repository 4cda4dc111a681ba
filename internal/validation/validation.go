package validation

import (
	"fmt"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

// Validate checks the minimum shape of an "order paid" event. Every rule runs;
// messages come back in rule order so the caller can surface all of them.
func Validate(ev *domain.WebhookEvent) []string {
	var errs []string

	if ev.EventType == "" {
		errs = append(errs, "event_type is required")
	} else if ev.EventType != domain.EventOrderPaid {
		errs = append(errs, fmt.Sprintf("unsupported event_type %q, expected %q", ev.EventType, domain.EventOrderPaid))
	}

	if len(ev.Data.Items) == 0 {
		errs = append(errs, "data.items must be a non-empty list")
	}

	if ev.Data.Amount <= 0 {
		errs = append(errs, "data.amount must be greater than zero")
	}

	return errs
}
