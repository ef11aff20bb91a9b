package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const latencyWindowSize = 200

// statusRecorder captures the response status and size. It passes through
// Hijack and Flush so websocket upgrades keep working behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// latencyWindow keeps the last latencyWindowSize samples of one route.
type latencyWindow struct {
	samples []int64
	next    int
}

func (w *latencyWindow) add(ms int64) {
	if len(w.samples) < latencyWindowSize {
		w.samples = append(w.samples, ms)
		return
	}
	w.samples[w.next] = ms
	w.next = (w.next + 1) % latencyWindowSize
}

// LatencyTracker aggregates rolling p50/p95 latencies per route pattern.
type LatencyTracker struct {
	mu     sync.Mutex
	routes map[string]*latencyWindow
}

func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{routes: make(map[string]*latencyWindow)}
}

// Record adds a sample and returns the route's current p50 and p95.
func (t *LatencyTracker) Record(route string, ms int64) (p50, p95 int64) {
	t.mu.Lock()
	win, ok := t.routes[route]
	if !ok {
		win = &latencyWindow{}
		t.routes[route] = win
	}
	win.add(ms)
	values := slices.Clone(win.samples)
	t.mu.Unlock()

	slices.Sort(values)
	return percentile(values, 0.5), percentile(values, 0.95)
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.999999) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// Telemetry logs one line per request with the route's rolling latency.
func Telemetry(logger *zap.Logger, tracker *LatencyTracker) func(http.Handler) http.Handler {
	if tracker == nil {
		tracker = NewLatencyTracker()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if logger == nil {
				return
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			routePattern := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				routePattern = rc.RoutePattern()
			}
			key := r.Method + " " + routePattern
			if routePattern == "" {
				key = r.Method + " " + r.URL.Path
			}
			p50, p95 := tracker.Record(key, duration.Milliseconds())

			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("routePattern", routePattern),
				zap.String("requestId", GetRequestID(r.Context())),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Int64("duration_ms", duration.Milliseconds()),
				zap.Int64("p50_ms", p50),
				zap.Int64("p95_ms", p95),
				zap.Bool("error", status >= 500),
				zap.Bool("clientError", status >= 400 && status < 500),
			)
		})
	}
}
