package circuitbreak

import (
	"testing"

	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTriggerErrorWithoutInitDoesNotBlock(t *testing.T) {
	CircuitBreakChan = nil

	TriggerError(DBService)
}

func TestTriggerErrorKeepsFirstReport(t *testing.T) {
	Init()
	t.Cleanup(func() { CircuitBreakChan = nil })

	TriggerError(DBService)
	TriggerError(MinioService)

	require.Equal(t, DBService, <-CircuitBreakChan)
	require.Empty(t, CircuitBreakChan)
}

func TestReportSinkOpen(t *testing.T) {
	Init()
	t.Cleanup(func() { CircuitBreakChan = nil })

	before := testutil.ToFloat64(prometheusLeadsync.CircuitOpenTotal.WithLabelValues(MinioService))

	require.False(t, ReportSinkOpen(MinioService, false))
	require.Empty(t, CircuitBreakChan)

	require.True(t, ReportSinkOpen(KafkaProducerService, true))
	require.Equal(t, KafkaProducerService, <-CircuitBreakChan)

	require.Equal(t, before+1, testutil.ToFloat64(prometheusLeadsync.CircuitOpenTotal.WithLabelValues(MinioService)))
}
