package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.AddPage("succeeded")
	m.AddPage("succeeded")
	m.AddArtifact("pdf", "failed")
	m.AddDispatch("webhook", "succeeded")
	m.ObserveStage("ocr", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelinePagesTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportArtifactsTotal.WithLabelValues("pdf", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchItemsTotal.WithLabelValues("webhook", "succeeded")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AddPage("failed")
		m.ObserveStage("ocr", time.Now())
		m.AddArtifact("txt", "succeeded")
		m.AddDispatch("share", "failed")
		_ = m.Handler()
	})
}
