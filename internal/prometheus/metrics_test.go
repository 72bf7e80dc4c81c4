package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage(t *testing.T) {
	before := testutil.ToFloat64(PipelineStageTotal.WithLabelValues("lead", "skipped"))

	ObserveStage("lead", "skipped")
	ObserveStage("lead", "skipped")

	assert.InDelta(t, before+2, testutil.ToFloat64(PipelineStageTotal.WithLabelValues("lead", "skipped")), 0)
}

func TestNewServer(t *testing.T) {
	server := NewServer()

	assert.NotNil(t, server.Handler)
	assert.Equal(t, ":", server.Addr[:1])
}
