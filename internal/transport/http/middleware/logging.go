package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through so websocket upgrades work behind the logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// RequestLogger logs every request: server errors at error level, client
// errors at warning level, the rest at V(1).
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		switch {
		case rec.status >= 500:
			glog.Errorf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)
		case rec.status >= 400:
			glog.Warningf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)
		default:
			glog.V(1).Infof("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)
		}
	})
}
