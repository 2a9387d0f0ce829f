package texshot

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Render outcome labels.
const (
	outcomeOK                = "ok"
	outcomeMarkup            = "markup"
	outcomeTypesetterMissing = "typesetter_missing"
	outcomeStyleLoad         = "style_load"
	outcomeGeometry          = "geometry"
	outcomeCrashed           = "crashed"
	outcomeBrowser           = "browser"
	outcomeCanceled          = "canceled"
	outcomeTimeout           = "timeout"
	outcomeOther             = "other"
)

// Metrics holds the engine and render collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	launches       prometheus.Counter
	crashes        prometheus.Counter
	activeSessions prometheus.Gauge
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which suits tests and one-shot CLIs
// that gather through Gatherer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		launches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "texshot_engine_launches_total",
			Help: "Total number of successful browser launches",
		}),
		crashes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "texshot_engine_crashes_total",
			Help: "Total number of browser generations marked crashed",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "texshot_sessions_active",
			Help: "Number of browser pages currently open",
		}),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "texshot_renders_total",
				Help: "Total number of renders by outcome",
			},
			[]string{"outcome"},
		),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "texshot_render_duration_seconds",
			Help:    "Duration of successful renders",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.launches, m.crashes, m.activeSessions, m.renders, m.renderDuration)
	}
	return m
}

func (m *Metrics) engineLaunched() {
	if m == nil {
		return
	}
	m.launches.Inc()
}

func (m *Metrics) engineCrashed() {
	if m == nil {
		return
	}
	m.crashes.Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) renderFinished(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeFor(err)
	m.renders.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.renderDuration.Observe(elapsed.Seconds())
	}
}

// outcomeFor maps a render error to its metric label.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrEngineCrashed):
		return outcomeCrashed
	case errors.Is(err, ErrMarkupFailure), errors.Is(err, ErrEmptyMarkup):
		return outcomeMarkup
	case errors.Is(err, ErrTypesetterNotFound):
		return outcomeTypesetterMissing
	case errors.Is(err, ErrStyleLoad):
		return outcomeStyleLoad
	case errors.Is(err, ErrElementGeometry):
		return outcomeGeometry
	case errors.Is(err, ErrBrowserConnect), errors.Is(err, ErrPageCreate),
		errors.Is(err, ErrPageLoad), errors.Is(err, ErrScreenshot):
		return outcomeBrowser
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	default:
		return outcomeOther
	}
}
