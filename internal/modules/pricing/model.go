// README: Pickup fee schedule.
package pricing

import "kurs/internal/types"

// Schedule holds the flat fee charged per pickup.
type Schedule struct {
	MinimumFee types.Money
}
