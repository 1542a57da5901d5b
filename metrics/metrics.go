package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder is the instrumentation surface used by services and middleware.
type Recorder interface {
	IncDetection(known bool)
	ObserveExternalCall(service, op string, success bool, seconds float64)
	ObserveHTTPRequest(method, route string, status int, seconds float64)
}

type noopRecorder struct{}

func (noopRecorder) IncDetection(bool)                                 {}
func (noopRecorder) ObserveExternalCall(string, string, bool, float64) {}
func (noopRecorder) ObserveHTTPRequest(string, string, int, float64)   {}

var (
	recMu    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// TimeCall times one call to an external service.
func TimeCall(service, op string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveExternalCall(service, op, success, time.Since(start).Seconds())
	}
}

type promRecorder struct {
	detections   *prom.CounterVec
	callSeconds  *prom.HistogramVec
	httpTotal    *prom.CounterVec
	httpDuration *prom.HistogramVec
}

func (p *promRecorder) IncDetection(known bool) {
	p.detections.WithLabelValues(strconv.FormatBool(known)).Inc()
}

func (p *promRecorder) ObserveExternalCall(service, op string, success bool, seconds float64) {
	p.callSeconds.WithLabelValues(service, op, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	code := strconv.Itoa(status)
	p.httpTotal.WithLabelValues(method, route, code).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// EnablePrometheus registers the collectors on reg and installs the recorder.
func EnablePrometheus(reg prom.Registerer) error {
	p := &promRecorder{
		detections: prom.NewCounterVec(prom.CounterOpts{
			Name: "hasiru_detections_total",
			Help: "Total number of disease detections, by whether a known condition matched",
		}, []string{"condition_known"}),
		callSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "hasiru_external_call_seconds",
			Help:    "Duration of calls to external APIs in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"service", "op", "success"}),
		httpTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "hasiru_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "hasiru_http_request_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"method", "route"}),
	}
	for _, c := range []prom.Collector{p.detections, p.callSeconds, p.httpTotal, p.httpDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	SetRecorder(p)
	return nil
}
