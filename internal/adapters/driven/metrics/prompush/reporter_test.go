package prompush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

type gateway struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
	status int
}

func (g *gateway) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	g.mu.Lock()
	g.paths = append(g.paths, r.Method+" "+r.URL.Path)
	g.bodies = append(g.bodies, string(body))
	status := g.status
	g.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func testReport() domain.CollectionReport {
	return domain.CollectionReport{
		Collection:     "orders",
		Classification: domain.ClassificationNested,
		Status:         domain.StatusSuccess,
		DocumentsIn:    10,
		RowsOut:        25,
		ColumnsBefore:  40,
		ColumnsAfter:   8,
		Skipped:        1,
		Duration:       2 * time.Second,
	}
}

func TestNewReporter(t *testing.T) {
	tests := []struct {
		name       string
		jobName    string
		gatewayURL string
		wantErr    bool
		wantJob    string
	}{
		{"valid", "nightly", "http://gw:9091", false, "nightly"},
		{"default job", "", "http://gw:9091", false, "tabula"},
		{"missing url", "x", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReporter(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJob, r.jobName)
		})
	}
}

func TestReporter_Report_RecordsAndPushes(t *testing.T) {
	gw := &gateway{}
	srv := httptest.NewServer(http.HandlerFunc(gw.handler))
	defer srv.Close()

	r, err := NewReporter("nightly", srv.URL)
	require.NoError(t, err)

	require.NoError(t, r.Report(context.Background(), testReport()))
	require.NoError(t, r.Report(context.Background(), testReport()))

	assert.InDelta(t, 20, testutil.ToFloat64(r.documents.WithLabelValues("orders")), 1e-9)
	assert.InDelta(t, 50, testutil.ToFloat64(r.rows.WithLabelValues("orders")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(r.skipped.WithLabelValues("orders")), 1e-9)
	assert.InDelta(t, 8, testutil.ToFloat64(r.columns.WithLabelValues("orders", "after")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(r.collections.WithLabelValues("success", "nested")), 1e-9)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.paths, 2)
	assert.Equal(t, "PUT /metrics/job/nightly", gw.paths[0])
	assert.Contains(t, gw.bodies[1], "tabula_rows_total")
}

func TestReporter_Report_GatewayError(t *testing.T) {
	gw := &gateway{status: http.StatusInternalServerError}
	srv := httptest.NewServer(http.HandlerFunc(gw.handler))
	defer srv.Close()

	r, err := NewReporter("nightly", srv.URL)
	require.NoError(t, err)

	err = r.Report(context.Background(), testReport())

	assert.Error(t, err)
	assert.InDelta(t, 10, testutil.ToFloat64(r.documents.WithLabelValues("orders")), 1e-9)
}
