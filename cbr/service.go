package cbr

import (
	"context"
	"errors"
	"fmt"
	"go-cbr-converter/domain"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const ApiUrlBase = "https://www.cbr-xml-daily.ru"

// ErrNoRates the response did not carry a usable rate table.
var ErrNoRates = errors.New("no rates in response")

var one = decimal.NewFromInt(1)

// Service wraps the CBR daily JSON feed.
// An error means there is no data for the date; callers are expected to try another date.
type Service interface {
	Rates(ctx context.Context, date time.Time) (domain.RateTable, error)
}

// ServiceFunc for looking up rate tables with a plain function.
// Implementations must be concurrency-safe when invoked.
type ServiceFunc func(ctx context.Context, date time.Time) (domain.RateTable, error)

// Rates calls f(ctx, date)
func (f ServiceFunc) Rates(ctx context.Context, date time.Time) (domain.RateTable, error) {
	return f(ctx, date)
}

// service CBR daily feed
type service struct {
	// url base feed url
	url string

	// client for HTTP requests
	client http.Client

	// now tells which calendar day is "today"
	now func() time.Time
}

// NewService constructs a valid CBR Service.
func NewService(url string, timeout time.Duration) Service {
	if url == "" {
		url = ApiUrlBase
	}
	return &service{
		url: url,
		client: http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Rates loads the rate table published for date.
// Today's rates come from the live document, earlier days from the archive.
func (s *service) Rates(ctx context.Context, date time.Time) (domain.RateTable, error) {
	url := s.endpoint(date)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building http request: %w", err)
	}
	httpResponse, err := s.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, fmt.Errorf("http get [%v]: status %d", url, httpResponse.StatusCode)
	}

	bytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}

	return parse(bytes)
}

func (s *service) endpoint(date time.Time) string {
	if domain.SameDay(date, s.now()) {
		return fmt.Sprintf("%v/daily_json.js", s.url)
	}
	y, m, d := date.Date()
	return fmt.Sprintf("%v/archive/%04d/%02d/%02d/daily_json.js", s.url, y, int(m), d)
}

// parse decodes the "Valute" object of a daily document into a normalized table.
func parse(body []byte) (domain.RateTable, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decoding json: %w", ErrNoRates)
	}
	valute := gjson.GetBytes(body, "Valute")
	if !valute.IsObject() {
		return nil, fmt.Errorf("missing Valute: %w", ErrNoRates)
	}

	rates := domain.RateTable{}
	var err error
	valute.ForEach(func(key, entry gjson.Result) bool {
		var rate domain.CurrencyRate
		rate, err = parseRate(entry)
		if err != nil {
			err = fmt.Errorf("entry [%v]: %w", key.String(), err)
			return false
		}
		rates[rate.Code] = normalize(rate)
		return true
	})
	if err != nil {
		return nil, err
	}

	rates[domain.RUB] = domain.BaseRate()
	return rates, nil
}

func parseRate(entry gjson.Result) (domain.CurrencyRate, error) {
	code := entry.Get("CharCode")
	if code.Type != gjson.String || code.String() == "" {
		return domain.CurrencyRate{}, fmt.Errorf("bad CharCode: %w", ErrNoRates)
	}
	name := entry.Get("Name")
	if name.Type != gjson.String {
		return domain.CurrencyRate{}, fmt.Errorf("bad Name: %w", ErrNoRates)
	}
	value, err := number(entry.Get("Value"))
	if err != nil {
		return domain.CurrencyRate{}, fmt.Errorf("bad Value: %w", err)
	}
	nominal, err := number(entry.Get("Nominal"))
	if err != nil {
		return domain.CurrencyRate{}, fmt.Errorf("bad Nominal: %w", err)
	}
	if !nominal.IsPositive() {
		return domain.CurrencyRate{}, fmt.Errorf("non-positive Nominal %v: %w", nominal, ErrNoRates)
	}

	return domain.CurrencyRate{
		Code:    domain.Currency(code.String()),
		Name:    name.String(),
		Value:   value,
		Nominal: nominal,
	}, nil
}

// number reads a JSON number literal without going through float64
func number(r gjson.Result) (decimal.Decimal, error) {
	if r.Type != gjson.Number {
		return decimal.Zero, ErrNoRates
	}
	d, err := decimal.NewFromString(r.Raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%v: %w", err, ErrNoRates)
	}
	return d, nil
}

// normalize rescales the yen, which the feed quotes per 100 units, to a nominal of 1.
func normalize(rate domain.CurrencyRate) domain.CurrencyRate {
	if rate.Code == domain.JPY && !rate.Nominal.Equal(one) {
		rate.Value = rate.Value.Div(rate.Nominal)
		rate.Nominal = one
	}
	return rate
}
