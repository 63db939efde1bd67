package metrics

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const (
	namespace   = "loadharness"
	metricsPath = "/metrics"
)

// Exporter mirrors live run samples into Prometheus collectors so a run can
// be watched while it is in progress.
type Exporter struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	checks     *prometheus.CounterVec
	iterations prometheus.Counter
	vus        prometheus.Gauge
}

// NewExporter creates an Exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_reqs_total",
			Help:      "HTTP requests issued, by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_req_duration_seconds",
			Help:      "HTTP request duration, by endpoint.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"endpoint"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Check outcomes, by check name and result.",
		}, []string{"check", "result"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed virtual user iterations.",
		}),
		vus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vus",
			Help:      "Currently active virtual users.",
		}),
	}
	e.registry.MustRegister(e.requests, e.duration, e.checks, e.iterations, e.vus)
	return e
}

func (e *Exporter) observe(s Sample) {
	switch s.kind {
	case requestSample:
		e.requests.WithLabelValues(s.label, strconv.Itoa(s.status)).Inc()
		e.duration.WithLabelValues(s.label).Observe(s.value / 1e3)
	case checkSample:
		result := "pass"
		if s.failed {
			result = "fail"
		}
		e.checks.WithLabelValues(s.label, result).Inc()
	case iterationSample:
		e.iterations.Inc()
	case gaugeSample:
		if s.label == VUs {
			e.vus.Set(s.value)
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() fasthttp.RequestHandler {
	ph := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != metricsPath {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ph(ctx)
	}
}

// Start serves /metrics on addr until ctx is done and returns the bound
// address.
func (e *Exporter) Start(ctx context.Context, addr string, logger *zap.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	srv := &fasthttp.Server{Handler: e.Handler(), Name: namespace}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()
	go func() {
		if err := srv.Serve(ln); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving live metrics", zap.String("addr", ln.Addr().String()), zap.String("path", metricsPath))
	return ln.Addr(), nil
}
