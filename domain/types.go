package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Currency a currency code
type Currency string

const (
	// RUB the base currency every other rate is quoted against
	RUB Currency = "RUB"
	// USD the default source currency
	USD Currency = "USD"
	// JPY is quoted per 100 units by the feed
	JPY Currency = "JPY"
)

// CurrencyRate a quoted rate: Value roubles per Nominal units of Code.
type CurrencyRate struct {
	Code    Currency
	Name    string
	Value   decimal.Decimal
	Nominal decimal.Decimal
}

// UnitValue the value of a single unit of the currency.
func (r CurrencyRate) UnitValue() decimal.Decimal {
	return r.Value.Div(r.Nominal)
}

// RateTable maps a currency code to its rate.
// A table is never modified once it has been handed out.
type RateTable map[Currency]CurrencyRate

// Codes returns the table's currency codes in sorted order.
func (t RateTable) Codes() []Currency {
	codes := make([]Currency, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Contains reports whether code is present in the table.
func (t RateTable) Contains(code Currency) bool {
	if code == "" {
		return false
	}
	_, ok := t[code]
	return ok
}

// ConversionRequest an amount of From to express in To.
type ConversionRequest struct {
	From   Currency
	To     Currency
	Amount decimal.Decimal
}

// BaseRate the synthetic entry for the base currency.
func BaseRate() CurrencyRate {
	return CurrencyRate{
		Code:    RUB,
		Name:    "Российский рубль",
		Value:   decimal.NewFromInt(1),
		Nominal: decimal.NewFromInt(1),
	}
}

// Day truncates t to midnight of its calendar day, keeping the location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
