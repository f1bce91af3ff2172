package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(GuardOutcomes.WithLabelValues("render"))
	GuardOutcomes.WithLabelValues("render").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(GuardOutcomes.WithLabelValues("render")))

	ObserveLookup("origin", time.Now())
}
