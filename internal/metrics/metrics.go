package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector holds the application metrics on a private registry. A nil
// *Collector is valid and records nothing, so components can take one
// unconditionally.
type Collector struct {
	reg *prometheus.Registry

	apiRequests    *prometheus.CounterVec
	apiErrors      *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	breakerState   prometheus.Gauge
	profileSwitch  prometheus.Counter
	recordsByState *prometheus.GaugeVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptick_api_requests_total",
			Help: "Price API requests by network",
		}, []string{"network"}),
		apiErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptick_api_errors_total",
			Help: "Failed price API requests by network",
		}, []string{"network"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cryptick_fetch_duration_seconds",
			Help:    "Time taken to refresh a ticker set",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"strategy"}),
		breakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "cryptick_breaker_state",
			Help: "Price API circuit breaker state (0 closed, 1 half-open, 2 open)",
		}),
		profileSwitch: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptick_profile_switches_total",
			Help: "Active profile changes",
		}),
		recordsByState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cryptick_records",
			Help: "Records in the last applied refresh by status",
		}, []string{"status"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

func (c *Collector) ObserveRequest(network string, err error) {
	if c == nil {
		return
	}
	c.apiRequests.WithLabelValues(network).Inc()
	if err != nil {
		c.apiErrors.WithLabelValues(network).Inc()
	}
}

func (c *Collector) ObserveFetch(strategy string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// SetBreakerState takes the numeric value of gobreaker.State.
func (c *Collector) SetBreakerState(state int) {
	if c == nil {
		return
	}
	c.breakerState.Set(float64(state))
}

func (c *Collector) ProfileSwitched() {
	if c == nil {
		return
	}
	c.profileSwitch.Inc()
}

func (c *Collector) SetRecordCounts(counts map[string]int) {
	if c == nil {
		return
	}
	for status, n := range counts {
		c.recordsByState.WithLabelValues(status).Set(float64(n))
	}
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	if c == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
