package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := New()

	c.ObserveRequest("eth", nil)
	c.ObserveRequest("eth", errors.New("boom"))
	c.ObserveRequest("bsc", nil)
	c.ProfileSwitched()
	c.SetBreakerState(2)
	c.ObserveFetch("batch", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiRequests.WithLabelValues("eth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiErrors.WithLabelValues("eth")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.apiErrors.WithLabelValues("bsc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.profileSwitch))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.breakerState))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("eth", nil)
		c.ObserveFetch("batch", time.Second)
		c.SetBreakerState(1)
		c.ProfileSwitched()
		c.SetRecordCounts(map[string]int{"ok": 1})
	})
	assert.Nil(t, c.Registry())
}
