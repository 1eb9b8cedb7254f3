package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Interaction("hover")
	m.Interaction("hover")
	m.Interaction("brush")
	m.SelectionUpdated()
	m.SetDatasetRows(42)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.interactions.WithLabelValues("hover")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactions.WithLabelValues("brush")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.selectionUpdates))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.datasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsSessions))
}

func TestObserveView(t *testing.T) {
	m := New()
	m.ObserveView("race", 3*time.Millisecond)
	m.ObserveView("race", time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.viewDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetDatasetRows(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "macrodash_dataset_rows 7")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
