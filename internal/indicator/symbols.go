package indicator

import (
	"fmt"
	"math"
)

// ATMStrike rounds the price to the nearest multiple of the strike interval.
func ATMStrike(price float64, interval int) int {
	if interval <= 0 {
		interval = 50
	}
	return int(math.Round(price/float64(interval))) * interval
}

// OptionSymbol builds the broker option symbol by exact concatenation:
// {EXCHANGE}:{UNDERLYING}{EXPIRY}{STRIKE}{CE|PE}, e.g. MCX:CRUDEOILM26FEB6500CE.
// The broker rejects anything that is not bit-exact.
func OptionSymbol(exchange, base, expiry string, strike int, optType string) string {
	return fmt.Sprintf("%s:%s%s%d%s", exchange, base, expiry, strike, optType)
}
