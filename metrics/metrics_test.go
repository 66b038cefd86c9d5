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
	m := New(reg)

	m.IncrementSubmitted()
	m.IncrementSubmitted()
	m.IncrementRejected(ReasonConsent)
	m.IncrementStorageErrors("find")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ApplicationsSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ApplicationsRejected.WithLabelValues(ReasonConsent)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ApplicationsRejected.WithLabelValues(ReasonValidation)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StorageErrors.WithLabelValues("find")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "reading a label creates its series")
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
