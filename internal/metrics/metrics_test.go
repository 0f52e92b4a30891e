package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()

	r.ProviderFetched("openchargemap", "ok", 120*time.Millisecond)
	r.ProviderFetched("openchargemap", "ok", 80*time.Millisecond)
	r.ProviderFetched("plugshare", "error", time.Second)
	r.RecordDropped("OPENCHARGEMAP")
	r.PersistenceFailed()
	r.SearchCompleted("DONE")
	r.SearchCompleted("NO_RESULTS")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.providerFetches.WithLabelValues("openchargemap", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerFetches.WithLabelValues("plugshare", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.droppedRecords.WithLabelValues("OPENCHARGEMAP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistenceFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searches.WithLabelValues("NO_RESULTS")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.fetchDuration))
}

func TestRecorderWriteText(t *testing.T) {
	r := NewRecorder()
	r.SearchCompleted("DONE")

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), `chargefinder_searches_total{state="DONE"} 1`)
	assert.Contains(t, buf.String(), "# TYPE chargefinder_persistence_failures_total counter")
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.PersistenceFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.persistenceFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.persistenceFailures))
}
