package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_HandlerExposesCounters(t *testing.T) {
	r := NewRegistry()
	r.RowsInserted.Add(12000)
	r.BatchesCommitted.Add(3)
	r.NullCells.WithLabelValues("price").Inc()
	r.QueryErrors.WithLabelValues("core_kpis").Inc()

	assert.Equal(t, 12000.0, testutil.ToFloat64(r.RowsInserted))

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "ingest_rows_inserted_total 12000")
	assert.Contains(t, string(body), "ingest_batches_committed_total 3")
	assert.Contains(t, string(body), `ingest_null_cells_total{column="price"} 1`)
	assert.Contains(t, string(body), `analytics_query_errors_total{query="core_kpis"} 1`)
}

func TestRegistry_Gatherer(t *testing.T) {
	r := NewRegistry()

	n, err := testutil.GatherAndCount(r.Gatherer())
	require.NoError(t, err)
	assert.Equal(t, 9, n, "unlabelled collectors report from the start")

	r.NullCells.WithLabelValues("price").Inc()
	r.NullCells.WithLabelValues("title").Add(2)
	n, err = testutil.GatherAndCount(r.Gatherer(), "ingest_null_cells_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r.BadLines.Inc()
	require.NoError(t, testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(`
# HELP ingest_bad_lines_total Malformed CSV lines skipped during ingestion.
# TYPE ingest_bad_lines_total counter
ingest_bad_lines_total 1
`), "ingest_bad_lines_total"))
}
