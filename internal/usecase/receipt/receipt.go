package receipt

import (
	"context"

	"github.com/google/uuid"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/receipt"
)

type PayoutReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
}

type UseCase struct {
	payouts   PayoutReader
	generator receipt.Generator
}

func NewUseCase(payouts PayoutReader, generator receipt.Generator) *UseCase {
	return &UseCase{payouts: payouts, generator: generator}
}

// Execute renders the receipt of the payout as it is stored right now.
func (uc *UseCase) Execute(ctx context.Context, id uuid.UUID) ([]byte, error) {
	p, err := uc.payouts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return uc.generator.Generate(receipt.Data{
		PayoutID:      p.ID().String(),
		CorrelationID: p.CorrelationID(),
		Status:        string(p.Status()),
		Amount:        p.SourceAmount().String(),
		Currency:      p.SourceCurrency(),
		DestCurrency:  p.DestCurrency(),

		PayoutReference: p.PayoutReference(),
		Final:           p.Status().IsTerminal(),
	})
}
