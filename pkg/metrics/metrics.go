// Package metrics exposes the pipeline counters. A nil *Pipeline is valid
// and records nothing, which is how the Lambda binaries run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fileflow"

// Pipeline holds the counters both stages report into.
type Pipeline struct {
	FileUploads      prometheus.Counter
	InvalidFiles     prometheus.Counter
	ProcessingErrors *prometheus.CounterVec
	Notifications    prometheus.Counter
	Outcomes         *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		FileUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_uploads_total",
			Help:      "Uploaded files accepted and persisted.",
		}),
		InvalidFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_files_total",
			Help:      "Uploaded files rejected by validation and quarantined.",
		}),
		ProcessingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_errors_total",
			Help:      "Per-event failures by stage and severity.",
		}, []string{"stage", "severity"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications published.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_outcomes_total",
			Help:      "Terminal state of every processed event.",
		}, []string{"stage", "state"}),
	}

	for _, c := range []prometheus.Collector{p.FileUploads, p.InvalidFiles, p.ProcessingErrors, p.Notifications, p.Outcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) Accepted() {
	if p != nil {
		p.FileUploads.Inc()
	}
}

func (p *Pipeline) Quarantined() {
	if p != nil {
		p.InvalidFiles.Inc()
	}
}

func (p *Pipeline) Notified() {
	if p != nil {
		p.Notifications.Inc()
	}
}

// Failed counts a per-event failure; fatal distinguishes batch aborts.
func (p *Pipeline) Failed(stage string, fatal bool) {
	if p == nil {
		return
	}
	severity := "skipped"
	if fatal {
		severity = "fatal"
	}
	p.ProcessingErrors.WithLabelValues(stage, severity).Inc()
}

func (p *Pipeline) Outcome(stage, state string) {
	if p != nil {
		p.Outcomes.WithLabelValues(stage, state).Inc()
	}
}
