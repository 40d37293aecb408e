package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsRecord(t *testing.T) {
	t.Parallel()
	m, err := NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(StageDecode, StatusSuccess)
	r.RecordOperation(StageDecode, StatusSuccess)
	r.RecordOperation(StageDecode, StatusError)
	r.RecordError(StageDecode, "audio")
	r.RecordDuration(StageAnalyze, 0.5)
	m.RecordChunk()
	m.SetActiveWorkers(3)
	m.SetCalibrationBeta("energy", -0.42)

	assert.InDelta(t, 2, testutil.ToFloat64(m.stageOperationsTotal.WithLabelValues(StageDecode, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.stageOperationsTotal.WithLabelValues(StageDecode, StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.stageErrorsTotal.WithLabelValues(StageDecode, "audio")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.chunksTotal), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.activeWorkers), 0)
	assert.InDelta(t, -0.42, testutil.ToFloat64(m.calibrationBeta.WithLabelValues("energy")), 1e-12)
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestPipelineMetricsDoubleRegister(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(reg)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(reg)
	assert.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.RecordOperation(StageStore, StatusError)
		r.RecordDuration(StageStore, 1)
		r.RecordError(StageStore, "database")
	})
}
