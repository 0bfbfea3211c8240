package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// logging logs every request once it has been served
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
		defer func(begin time.Time) {
			s.Logger.Log(
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"status", ww.Status(),
				"took", time.Since(begin),
			)
		}(time.Now())
		next.ServeHTTP(ww, r)
	})
}
