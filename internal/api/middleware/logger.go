package middleware

import (
	"net/http"
	"net/url"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// secretParams are query parameters whose values never reach the request log.
var secretParams = []string{"token"}

// RequestLogger is chi's request logger writing to logger, with secret query
// parameters redacted from the logged URI.
func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return chiMiddleware.RequestLogger(&redactingFormatter{
		inner: &chiMiddleware.DefaultLogFormatter{Logger: logger, NoColor: true},
	})
}

type redactingFormatter struct {
	inner chiMiddleware.LogFormatter
}

func (f *redactingFormatter) NewLogEntry(r *http.Request) chiMiddleware.LogEntry {
	if r.URL.RawQuery == "" {
		return f.inner.NewLogEntry(r)
	}

	query := r.URL.Query()
	redacted := false
	for _, p := range secretParams {
		if query.Has(p) {
			query.Set(p, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return f.inner.NewLogEntry(r)
	}

	logged := r.Clone(r.Context())
	logged.URL.RawQuery = query.Encode()
	logged.RequestURI = (&url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: logged.URL.RawQuery}).RequestURI()
	return f.inner.NewLogEntry(logged)
}
