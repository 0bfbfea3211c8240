package resolver

import (
	"go-cbr-converter/domain"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func rate(code string, value, nominal int64) domain.CurrencyRate {
	return domain.CurrencyRate{
		Code:    domain.Currency(code),
		Value:   decimal.NewFromInt(value),
		Nominal: decimal.NewFromInt(nominal),
	}
}

var rates = domain.RateTable{
	"USD": rate("USD", 90, 1),
	"EUR": rate("EUR", 100, 1),
	"HUF": rate("HUF", 25, 100),
	"RUB": domain.BaseRate(),
}

func TestConvert(t *testing.T) {
	type args struct {
		amount string
		from   domain.Currency
		to     domain.Currency
	}
	tests := []struct {
		name string
		args args
		want string
		ok   bool
	}{
		{"usd -> rub", args{"10", "USD", "RUB"}, "900.00", true},
		{"eur -> usd", args{"10", "EUR", "USD"}, "11.11", true},
		{"rub -> usd", args{"100", "RUB", "USD"}, "1.11", true},
		{"huf -> rub honours nominal", args{"1000", "HUF", "RUB"}, "250.00", true},
		{"rub -> huf honours nominal", args{"250", "RUB", "HUF"}, "1000.00", true},
		{"rounds half away from zero", args{"0.125", "RUB", "RUB"}, "0.13", true},
		{"zero amount", args{"0", "EUR", "USD"}, "0.00", true},
		{"unknown target", args{"10", "USD", "XYZ"}, "", false},
		{"unknown source", args{"10", "ABC", "USD"}, "", false},
		{"empty source", args{"10", "", "USD"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Convert(rates, domain.ConversionRequest{
				From:   tt.args.from,
				To:     tt.args.to,
				Amount: decimal.RequireFromString(tt.args.amount),
			})
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, FormatAmount(got))
			}
		})
	}
}

func TestConvert_ZeroTargetValue(t *testing.T) {
	broken := domain.RateTable{"USD": rate("USD", 90, 1), "XXX": rate("XXX", 0, 1)}

	_, ok := Convert(broken, domain.ConversionRequest{From: "USD", To: "XXX", Amount: decimal.NewFromInt(1)})

	assert.False(t, ok)
}

func TestConvert_Properties(t *testing.T) {
	amounts := []string{"0", "1", "10", "123.45", "99999.99"}
	codes := rates.Codes()

	for _, a := range codes {
		for _, amount := range amounts {
			x := decimal.RequireFromString(amount)

			identity, ok := Convert(rates, domain.ConversionRequest{From: a, To: a, Amount: x})
			assert.True(t, ok)
			assert.Equal(t, x.StringFixed(2), FormatAmount(identity), "%v -> %v", a, a)

			for _, b := range codes {
				there, ok := Convert(rates, domain.ConversionRequest{From: a, To: b, Amount: x})
				assert.True(t, ok)
				if x.IsZero() {
					assert.Equal(t, "0.00", FormatAmount(there))
				}

				// round trip through the displayed, rounded value
				shown := decimal.RequireFromString(FormatAmount(there))
				back, _ := Convert(rates, domain.ConversionRequest{From: b, To: a, Amount: shown})
				if rates[a].Nominal.Equal(decimal.NewFromInt(1)) && rates[b].Nominal.Equal(decimal.NewFromInt(1)) {
					diff := back.Round(2).Sub(x).Abs()
					// a rounding step on b is scaled by b's value in a on the way back
					tolerance := decimal.RequireFromString("0.02").Mul(decimal.Max(decimal.NewFromInt(1), rates[b].Value.Div(rates[a].Value)))
					assert.True(t, diff.LessThanOrEqual(tolerance), "%v %v -> %v -> %v: %v", amount, a, b, a, back)
				}
			}
		}
	}
}

func TestResolver_ConvertEmptyCache(t *testing.T) {
	r := &Resolver{}

	_, ok := r.Convert(domain.ConversionRequest{From: "USD", To: "RUB", Amount: decimal.NewFromInt(1)})

	assert.False(t, ok)
}
