package billing

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// Charge describes the payment side of a membership activation. The engine
// hands this to the processor and only interprets the returned error; payment
// provider responses stay on the other side of this boundary.
type Charge struct {
	AccountID    uint
	TierID       string
	BillingCycle string
	AmountCents  int
	Currency     string
}

// Processor is the billing collaborator consumed by the membership lifecycle.
type Processor interface {
	RecordActivation(ctx context.Context, charge Charge) error
	RecordCancellation(ctx context.Context, accountID uint, tierID string) error
}

// logProcessor is the default processor: it records the intent in the log and
// always succeeds. The production deployment swaps in the payment gateway
// adapter behind the same interface.
type logProcessor struct{}

// NewLogProcessor creates a processor that only logs.
func NewLogProcessor() Processor {
	return logProcessor{}
}

func (logProcessor) RecordActivation(_ context.Context, charge Charge) error {
	log.Infof("[Billing] Activation recorded: account=%d tier=%s cycle=%s amount=%d %s",
		charge.AccountID, charge.TierID, charge.BillingCycle, charge.AmountCents, charge.Currency)
	return nil
}

func (logProcessor) RecordCancellation(_ context.Context, accountID uint, tierID string) error {
	log.Infof("[Billing] Cancellation recorded: account=%d tier=%s", accountID, tierID)
	return nil
}
