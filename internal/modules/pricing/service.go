// README: Pricing service quotes the pickup fee fixed at creation.
package pricing

import (
	"context"
	"fmt"

	"kurs/internal/apperr"
	"kurs/internal/config"
	"kurs/internal/types"
)

type Service struct {
	schedule Schedule
}

func NewService(cfg config.PricingConfig) *Service {
	currency := cfg.Currency
	if currency == "" {
		currency = types.CurrencyIDR
	}
	return &Service{schedule: Schedule{
		MinimumFee: types.Money{Amount: cfg.MinimumFee, Currency: currency},
	}}
}

// Quote returns the fee for a pickup. Every volume estimate is charged the minimum fee.
func (s *Service) Quote(_ context.Context, volumeEstimate string) (types.Money, error) {
	if s.schedule.MinimumFee.Amount <= 0 {
		return types.Money{}, fmt.Errorf("%w: pricing not configured", apperr.ErrValidation)
	}
	return s.schedule.MinimumFee, nil
}
