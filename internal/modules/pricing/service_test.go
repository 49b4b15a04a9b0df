package pricing

import (
	"context"
	"errors"
	"testing"

	"kurs/internal/apperr"
	"kurs/internal/config"
	"kurs/internal/types"
)

func TestService_Quote(t *testing.T) {
	svc := NewService(config.PricingConfig{MinimumFee: 10000, Currency: "IDR"})

	tests := []struct {
		name   string
		volume string
	}{
		{name: "no estimate", volume: ""},
		{name: "small bag", volume: "1 bag"},
		{name: "large load", volume: "3 sacks, about 20kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Quote(context.Background(), tt.volume)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if got != types.IDR(10000) {
				t.Errorf("Quote() = %v, want 10000 IDR", got)
			}
		})
	}
}

func TestService_QuoteDefaultsCurrency(t *testing.T) {
	svc := NewService(config.PricingConfig{MinimumFee: 15000})
	got, err := svc.Quote(context.Background(), "")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if got.Currency != types.CurrencyIDR {
		t.Errorf("currency = %q, want IDR", got.Currency)
	}
}

func TestService_QuoteUnconfigured(t *testing.T) {
	svc := NewService(config.PricingConfig{})
	if _, err := svc.Quote(context.Background(), ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
