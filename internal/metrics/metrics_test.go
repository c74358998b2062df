package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	n, err := New(reg)
	require.NoError(t, err)

	n.Published("attitude")
	n.Published("attitude")
	n.PublishFailed("imu")
	n.ServiceCall("flight_task_control", true)
	n.ServiceCall("flight_task_control", false)
	n.Alignment(2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(n.published.WithLabelValues("attitude")))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.publishErrors.WithLabelValues("imu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.serviceCalls.WithLabelValues("flight_task_control", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(n.alignment))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.alignRetries))
}

func TestRegisterTwiceIsAllowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.Published("gps_position")
	assert.Equal(t, 1.0, testutil.ToFloat64(first.published.WithLabelValues("gps_position")))
}
