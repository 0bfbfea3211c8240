package http

import (
	"encoding/json"
	"errors"
	"go-cbr-converter/converter"
	"go-cbr-converter/domain"
	"go-cbr-converter/resolver"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Session the converter form state the API exposes
type Session interface {
	State() converter.State
	SetDate(date time.Time) bool
	SetSource(code domain.Currency) bool
	SetTarget(code domain.Currency) bool
	SetAmount(text string) bool
}

// Converter one-off conversions against the cached rates
type Converter interface {
	Convert(request domain.ConversionRequest) (decimal.Decimal, bool)
	Current() (resolver.Snapshot, bool)
}

// Server dependencies for HTTP Server functions
type Server struct {
	Session   Session
	Converter Converter
	Logger    log.Logger

	router   chi.Router
	validate *validator.Validate
}

func NewServer(session Session, converter Converter, logger log.Logger) *Server {
	server := &Server{
		Session:   session,
		Converter: converter,
		Logger:    logger,
		router:    chi.NewRouter(),
		validate:  validator.New(),
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logging)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.state())
		r.Put("/date", s.date())
		r.Put("/source", s.currency(s.Session.SetSource))
		r.Put("/target", s.currency(s.Session.SetTarget))
		r.Put("/amount", s.amount())
		r.Post("/convert", s.convert())
	})
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// stateResponse the session state as sent to clients
type stateResponse struct {
	Date         string            `json:"date"`
	Currencies   []domain.Currency `json:"currencies"`
	Source       domain.Currency   `json:"source"`
	Target       domain.Currency   `json:"target"`
	Amount       string            `json:"amount"`
	TargetAmount string            `json:"targetAmount"`
	Status       string            `json:"status"`
	RateDate     string            `json:"rateDate,omitempty"`
	Changed      *bool             `json:"changed,omitempty"`
}

func (s *Server) stateBody(changed *bool) stateResponse {
	state := s.Session.State()
	response := stateResponse{
		Date:         state.Date.Format(dateLayout),
		Currencies:   state.Currencies,
		Source:       state.Source,
		Target:       state.Target,
		Amount:       state.Amount,
		TargetAmount: state.TargetAmount,
		Status:       state.Status,
		Changed:      changed,
	}
	if response.Currencies == nil {
		response.Currencies = []domain.Currency{}
	}
	if !state.RateDate.IsZero() {
		response.RateDate = state.RateDate.Format(dateLayout)
	}
	return response
}

// state produces HTTP handler returning the session state
func (s *Server) state() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		s.respond(rw, http.StatusOK, s.stateBody(nil))
	}
}

// date produces HTTP handler selecting the day to convert at; rates are resolved in the background
func (s *Server) date() http.HandlerFunc {
	type request struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if !s.decode(rw, r, &request) {
			return
		}
		date, err := time.ParseInLocation(dateLayout, request.Date, time.Local)
		if err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid date")
			return
		}
		changed := s.Session.SetDate(date)
		s.respond(rw, http.StatusAccepted, s.stateBody(&changed))
	}
}

// currency produces HTTP handler selecting a source or target currency with set
func (s *Server) currency(set func(domain.Currency) bool) http.HandlerFunc {
	type request struct {
		Code domain.Currency `json:"code" validate:"required,len=3,alpha"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if !s.decode(rw, r, &request) {
			return
		}
		changed := set(request.Code)
		s.respond(rw, http.StatusOK, s.stateBody(&changed))
	}
}

// amount produces HTTP handler taking the source amount as typed
func (s *Server) amount() http.HandlerFunc {
	type request struct {
		Amount string `json:"amount" validate:"max=64"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if !s.decode(rw, r, &request) {
			return
		}
		changed := s.Session.SetAmount(request.Amount)
		s.respond(rw, http.StatusOK, s.stateBody(&changed))
	}
}

// convert produces HTTP handler for one-off currency conversions
func (s *Server) convert() http.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency domain.Currency `json:"fromCurrency" validate:"required,len=3,alpha"`
		ToCurrency   domain.Currency `json:"toCurrency" validate:"required,len=3,alpha"`
		Amount       decimal.Decimal `json:"amount"`
	}

	// response for marshalling JSON responses to return to clients
	type response struct {
		Amount   string          `json:"amount"`
		Original decimal.Decimal `json:"original"`
		RateDate string          `json:"rateDate"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if !s.decode(rw, r, &request) {
			return
		}
		if request.Amount.IsNegative() {
			s.fail(rw, http.StatusBadRequest, "amount must not be negative")
			return
		}

		snapshot, ok := s.Converter.Current()
		if !ok {
			s.fail(rw, http.StatusServiceUnavailable, "rates not loaded")
			return
		}
		result, ok := s.Converter.Convert(domain.ConversionRequest{
			From:   request.FromCurrency,
			To:     request.ToCurrency,
			Amount: request.Amount,
		})
		if !ok {
			s.fail(rw, http.StatusUnprocessableEntity, "failed conversion")
			return
		}

		s.respond(rw, http.StatusOK, response{
			Amount:   resolver.FormatAmount(result),
			Original: request.Amount,
			RateDate: snapshot.Date.Format(dateLayout),
		})
	}
}

// decode reads and validates a JSON body, answering the client itself on failure
func (s *Server) decode(rw http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.fail(rw, http.StatusBadRequest, "invalid json")
		return false
	}

	err = s.validate.Struct(v)
	if err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			s.fail(rw, http.StatusBadRequest, invalid.Error())
			return false
		}
		s.fail(rw, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func (s *Server) respond(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	enc := json.NewEncoder(rw)
	err := enc.Encode(v)
	if err != nil {
		s.Logger.Log("msg", "failed json encoding", "err", err)
	}
}

func (s *Server) fail(rw http.ResponseWriter, status int, message string) {
	type response struct {
		Error string `json:"error"`
	}
	s.respond(rw, status, response{Error: message})
}
