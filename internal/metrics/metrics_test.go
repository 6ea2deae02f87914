package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryIsSingleton(t *testing.T) {
	a := Registry("kinobot_test")
	b := Registry("other")
	assert.Same(t, a, b)
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncError("repo")
		m.IncLookup("found")
		m.IncUpload("stored")
		m.IncDelivery("sent")
	})
}

func TestIncDelivery(t *testing.T) {
	m := Registry("kinobot_test")
	before := testutil.ToFloat64(m.BroadcastDeliveries.WithLabelValues("failed"))
	m.IncDelivery("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(m.BroadcastDeliveries.WithLabelValues("failed")))
}
