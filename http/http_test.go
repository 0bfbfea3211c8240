package http

import (
	"context"
	"errors"
	"go-cbr-converter/cbr"
	"go-cbr-converter/converter"
	"go-cbr-converter/domain"
	"go-cbr-converter/prefs"
	"go-cbr-converter/resolver"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServeHTTP(t *testing.T) {
	published := domain.Day(time.Now()).AddDate(0, 0, -4)
	rates := domain.RateTable{
		"USD": {Code: "USD", Value: decimal.NewFromInt(90), Nominal: decimal.NewFromInt(1)},
		"EUR": {Code: "EUR", Value: decimal.NewFromInt(100), Nominal: decimal.NewFromInt(1)},
		"RUB": domain.BaseRate(),
	}

	var lookup cbr.ServiceFunc = func(ctx context.Context, date time.Time) (domain.RateTable, error) {
		if !date.Equal(published) {
			return nil, errors.New("no data")
		}
		return rates, nil
	}

	rs := resolver.New(lookup, log.NewNopLogger())
	store := prefs.NewMemoryStore()
	session := converter.NewSession(rs, store, log.NewNopLogger())
	defer session.Close()

	server := NewServer(session, rs, log.NewNopLogger())

	w := httptest.NewRecorder()
	msg := `{"date": "` + published.AddDate(0, 0, 2).Format("2006-01-02") + `"}`
	server.ServeHTTP(w, httptest.NewRequest("PUT", "/api/date", strings.NewReader(msg)))
	require.Equal(t, 202, w.Code)
	session.Wait()

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("PUT", "/api/amount", strings.NewReader(`{"amount": "10"}`)))
	require.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/state", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"rateDate":"`+published.Format("2006-01-02")+`"`)
	assert.Contains(t, w.Body.String(), `"targetAmount":"900.00"`)
	assert.Contains(t, w.Body.String(), `"currencies":["EUR","RUB","USD"]`)

	w = httptest.NewRecorder()
	msg = `{"fromCurrency":"EUR", "toCurrency":"USD","amount":"10"}`
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/convert", strings.NewReader(msg)))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"11.11"`)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.USD, saved.Source)
}

func TestServer_ConvertBeforeLoad(t *testing.T) {
	rs := resolver.New(cbr.ServiceFunc(func(ctx context.Context, date time.Time) (domain.RateTable, error) {
		return nil, errors.New("no data")
	}), log.NewNopLogger())
	server := NewServer(converter.NewSession(rs, prefs.NewMemoryStore(), log.NewNopLogger()), rs, log.NewNopLogger())

	w := httptest.NewRecorder()
	msg := `{"fromCurrency":"EUR", "toCurrency":"USD","amount":"10"}`
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/convert", strings.NewReader(msg)))

	assert.Equal(t, 503, w.Code)
}
