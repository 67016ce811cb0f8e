package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineCounters(t *testing.T) {
	p, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	p.Accepted()
	p.Accepted()
	p.Quarantined()
	p.Notified()
	p.Failed("ingestion", false)
	p.Failed("ingestion", true)
	p.Outcome("ingestion", "PERSISTED")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.FileUploads))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.InvalidFiles))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ProcessingErrors.WithLabelValues("ingestion", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ProcessingErrors.WithLabelValues("ingestion", "fatal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Outcomes.WithLabelValues("ingestion", "PERSISTED")))
}

func TestNilPipelineIsNoop(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.Accepted()
		p.Quarantined()
		p.Notified()
		p.Failed("notification", true)
		p.Outcome("notification", "DROPPED")
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
