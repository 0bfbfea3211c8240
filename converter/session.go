package converter

import (
	"context"
	"errors"
	"fmt"
	"go-cbr-converter/domain"
	"go-cbr-converter/prefs"
	"go-cbr-converter/resolver"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
)

const (
	// DefaultAmount the source amount used when nothing was saved
	DefaultAmount = "1"

	// yenAmount replaces the source amount when the yen is picked; a single yen is too small to be useful
	yenAmount = "100"

	StatusLoading     = "Loading rates"
	StatusUnavailable = "Rate unavailable for the selected date"
)

// Rates resolves and caches rate tables. Satisfied by *resolver.Resolver.
type Rates interface {
	Resolve(ctx context.Context, start time.Time) (time.Time, domain.RateTable, error)
	Convert(request domain.ConversionRequest) (decimal.Decimal, bool)
	Current() (resolver.Snapshot, bool)
}

// State what the presentation layer shows.
type State struct {
	Date         time.Time
	Currencies   []domain.Currency
	Source       domain.Currency
	Target       domain.Currency
	Amount       string
	TargetAmount string
	Status       string
	// RateDate the day the shown rates were published for; zero when none could be found
	RateDate time.Time
}

// Session the converter form: the selected date, currencies and amount and the result derived from them.
// Every setter reports whether the value changed and recalculates the result itself.
type Session struct {
	rates  Rates
	store  prefs.Store
	logger log.Logger
	now    func() time.Time

	// lock guards everything below
	lock sync.Mutex

	date         time.Time
	currencies   []domain.Currency
	source       domain.Currency
	target       domain.Currency
	amountText   string
	amount       decimal.Decimal
	targetAmount string
	status       string
	rateDate     time.Time

	// cancel stops the resolution in flight, if any
	cancel  context.CancelFunc
	loading sync.WaitGroup
}

// NewSession constructs a Session for today with the default amount.
func NewSession(rates Rates, store prefs.Store, logger log.Logger) *Session {
	s := &Session{
		rates:  rates,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	s.date = domain.Day(s.now())
	s.setAmount(DefaultAmount)
	return s
}

// Restore seeds the session from saved preferences. Missing preferences leave the defaults in place.
func (s *Session) Restore(ctx context.Context) error {
	p, err := s.store.Load(ctx)
	if errors.Is(err, prefs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring preferences: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if !p.Date.IsZero() {
		s.date = domain.Day(p.Date)
	}
	s.source = p.Source
	s.target = p.Target
	if p.Amount != "" {
		s.setAmount(p.Amount)
	}
	return nil
}

// SetDate selects another day and starts resolving its rates in the background.
// A resolution still in flight for the previous selection is cancelled.
func (s *Session) SetDate(date time.Time) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	date = domain.Day(date)
	if s.date.Equal(date) {
		return false
	}
	s.date = date
	s.schedule()
	return true
}

// Refresh resolves the rates of the selected day again in the background.
func (s *Session) Refresh() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.schedule()
}

// schedule must be called with lock held
func (s *Session) schedule() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.status = StatusLoading
	date := s.date

	s.loading.Add(1)
	go func() {
		defer s.loading.Done()
		defer cancel()
		err := s.load(ctx, date)
		if err != nil && !errors.Is(err, resolver.ErrUnavailable) {
			level.Debug(s.logger).Log("msg", "background resolution ended", "date", date.Format("2006-01-02"), "err", err)
		}
	}()
}

// Wait blocks until no background resolution is running.
func (s *Session) Wait() {
	s.loading.Wait()
}

// Close cancels a background resolution and waits for it to return.
func (s *Session) Close() {
	s.lock.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.lock.Unlock()
	s.Wait()
}

// Load resolves the rates of the selected day and waits for the result.
func (s *Session) Load(ctx context.Context) error {
	s.lock.Lock()
	date := s.date
	s.lock.Unlock()
	return s.load(ctx, date)
}

func (s *Session) load(ctx context.Context, date time.Time) error {
	effective, rates, err := s.rates.Resolve(ctx, date)
	if errors.Is(err, resolver.ErrUnavailable) {
		s.lock.Lock()
		if s.date.Equal(date) {
			s.status = StatusUnavailable
			s.rateDate = time.Time{}
		}
		s.lock.Unlock()
		return err
	}
	if err != nil {
		return fmt.Errorf("resolving rates [%v]: %w", date.Format("2006-01-02"), err)
	}

	s.lock.Lock()
	if !s.date.Equal(date) {
		// another day was selected meanwhile; its own resolution reports the outcome
		s.lock.Unlock()
		return resolver.ErrSuperseded
	}
	s.rateDate = effective
	s.status = fmt.Sprintf("Rates as of %s", effective.Format("02.01.2006"))
	s.updateCurrencies(rates)
	s.recalculate()
	saved := prefs.Preferences{Date: s.date, Source: s.source, Target: s.target, Amount: s.amountText}
	s.lock.Unlock()

	if err := s.store.Save(context.WithoutCancel(ctx), saved); err != nil {
		level.Warn(s.logger).Log("msg", "saving preferences failed", "err", err)
	}
	return nil
}

// UpdateCurrencies rebuilds the selectable currencies from the cached table.
// A selection missing from the table falls back to USD for the source and RUB for the target.
func (s *Session) UpdateCurrencies() {
	snapshot, ok := s.rates.Current()
	if !ok {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.updateCurrencies(snapshot.Rates)
	s.recalculate()
}

func (s *Session) updateCurrencies(rates domain.RateTable) {
	s.currencies = rates.Codes()

	source := s.source
	if !rates.Contains(source) {
		source = domain.USD
	}
	target := s.target
	if !rates.Contains(target) {
		target = domain.RUB
	}
	s.setSource(source)
	s.setTarget(target)
}

// SetSource selects the currency to convert from. Picking the yen resets the amount to 100.
func (s *Session) SetSource(code domain.Currency) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.setSource(code) {
		return false
	}
	s.recalculate()
	return true
}

func (s *Session) setSource(code domain.Currency) bool {
	if s.source == code {
		return false
	}
	s.source = code
	if code == domain.JPY {
		s.setAmount(yenAmount)
	}
	return true
}

// SetTarget selects the currency to convert to.
func (s *Session) SetTarget(code domain.Currency) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.setTarget(code) {
		return false
	}
	s.recalculate()
	return true
}

func (s *Session) setTarget(code domain.Currency) bool {
	if s.target == code {
		return false
	}
	s.target = code
	return true
}

// SetAmount takes the amount as typed. Text that is not a non-negative number counts as zero.
func (s *Session) SetAmount(text string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.setAmount(text) {
		return false
	}
	s.recalculate()
	return true
}

func (s *Session) setAmount(text string) bool {
	if s.amountText == text {
		return false
	}
	s.amountText = text
	s.amount = ParseAmount(text)
	return true
}

// recalculate leaves the previous result in place when the conversion is not possible
func (s *Session) recalculate() {
	amount, ok := s.rates.Convert(domain.ConversionRequest{From: s.source, To: s.target, Amount: s.amount})
	if !ok {
		return
	}
	s.targetAmount = resolver.FormatAmount(amount)
}

// State returns a copy of what is currently shown.
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return State{
		Date:         s.date,
		Currencies:   append([]domain.Currency(nil), s.currencies...),
		Source:       s.source,
		Target:       s.target,
		Amount:       s.amountText,
		TargetAmount: s.targetAmount,
		Status:       s.status,
		RateDate:     s.rateDate,
	}
}

// ParseAmount reads a typed amount, accepting a comma as the decimal separator.
// Anything unparsable or negative is zero.
func ParseAmount(text string) decimal.Decimal {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	amount, err := decimal.NewFromString(text)
	if err != nil || amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
