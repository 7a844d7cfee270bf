package middleware

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

// quietPaths are polled by probes and scrapers; they are only logged on error.
var quietPaths = map[string]bool{
	"/api/health": true,
	"/metrics":    true,
}

// statusRecorder remembers the status and byte count of a response. Hijack is
// passed through for the /api/ws upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer cannot be hijacked")
	}
	return h.Hijack()
}

// Logging logs one line per request, skipping successful quiet paths.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if quietPaths[r.URL.Path] && rec.status < http.StatusBadRequest {
			return
		}
		log.Printf("API %s %s -> %d (%d bytes, %v)",
			r.Method, r.URL.Path, rec.status, rec.written, time.Since(start).Round(time.Microsecond))
	})
}
