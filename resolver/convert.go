package resolver

import (
	"go-cbr-converter/domain"

	"github.com/shopspring/decimal"
)

// Convert converts against the cached table.
// The second result is false when nothing is cached or either currency is unknown.
func (r *Resolver) Convert(request domain.ConversionRequest) (decimal.Decimal, bool) {
	snapshot := r.current.Load()
	if snapshot == nil {
		return decimal.Zero, false
	}
	return Convert(snapshot.Rates, request)
}

// Convert expresses request.Amount of request.From in request.To through the base currency:
// amount * from.Value * to.Nominal / (from.Nominal * to.Value).
func Convert(rates domain.RateTable, request domain.ConversionRequest) (decimal.Decimal, bool) {
	if !rates.Contains(request.From) || !rates.Contains(request.To) {
		return decimal.Zero, false
	}
	from, to := rates[request.From], rates[request.To]

	divisor := from.Nominal.Mul(to.Value)
	if divisor.IsZero() {
		return decimal.Zero, false
	}
	return request.Amount.Mul(from.Value).Mul(to.Nominal).Div(divisor), true
}

// FormatAmount renders an amount with exactly two fractional digits, halves rounded away from zero.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
