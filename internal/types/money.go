// README: Common money value object used across modules.
package types

import "fmt"

const CurrencyIDR = "IDR"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func IDR(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyIDR}
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
