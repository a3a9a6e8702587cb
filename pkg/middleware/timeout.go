package middleware

import (
	"context"
	"net/http"
	apperrors "slotswap/pkg/errors"
	httputil "slotswap/pkg/http"
	"sync"
	"time"
)

// timeoutWriter drops writes from a handler that outlived its deadline.
// Once ctx is done no further write reaches the client, whichever of the
// handler and the timer observes it first.
type timeoutWriter struct {
	http.ResponseWriter
	ctx        context.Context
	mu         sync.Mutex
	timedOut   bool
	written    bool
	statusCode int
}

// expired reports whether the deadline has passed. Callers hold mu.
func (tw *timeoutWriter) expired() bool {
	if !tw.timedOut && tw.ctx.Err() != nil {
		tw.timedOut = true
	}
	return tw.timedOut
}

// writeTimeout sends the 504 unless the handler already started a response.
// Callers hold mu.
func (tw *timeoutWriter) writeTimeout() {
	tw.timedOut = true
	if tw.written {
		return
	}
	_ = httputil.WriteError(tw.ResponseWriter, apperrors.Timeout("Request timeout"))
	tw.statusCode = http.StatusGatewayTimeout
	tw.written = true
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.expired() || tw.written {
		return
	}

	tw.statusCode = code
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.expired() {
		return 0, http.ErrHandlerTimeout
	}

	if !tw.written {
		tw.statusCode = http.StatusOK
		tw.written = true
	}

	return tw.ResponseWriter.Write(b)
}

func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			tw := &timeoutWriter{ResponseWriter: w, ctx: ctx}

			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				tw.mu.Lock()
				if !tw.written && tw.expired() {
					tw.writeTimeout()
				}
				tw.mu.Unlock()
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.mu.Lock()
				tw.writeTimeout()
				tw.mu.Unlock()
			}
		})
	}
}
