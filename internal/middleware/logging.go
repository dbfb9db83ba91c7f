package middleware

import (
	"net/http"
	"time"

	"dispute-assistant/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrappedWriter := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(wrappedWriter, r)

			log.Info("Request handled", logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   wrappedWriter.statusCode,
				"duration": time.Since(start).String(),
				"remote":   r.RemoteAddr,
			})
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
