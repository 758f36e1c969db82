package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccess_ObserveDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAccess()
	require.NoError(t, m.Register(reg))

	m.ObserveDecision("view", "granted")
	m.ObserveDecision("view", "lookup_failed")
	m.ObserveDecision("view", "lookup_failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("view", "granted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("view", "lookup_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LookupFailures))
}

func TestAccess_RegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewAccess()
	require.NoError(t, first.Register(reg))

	second := NewAccess()
	require.NoError(t, second.Register(reg))
	second.ObserveAdminAction("set_role", errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(first.AdminActions.WithLabelValues("set_role", "error")))
}

func TestAccess_NilReceiver(t *testing.T) {
	var m *Access
	assert.NotPanics(t, func() {
		m.ObserveDecision("view", "denied")
		m.ObserveAdminAction("set_role", nil)
	})
}
