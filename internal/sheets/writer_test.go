package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type recordedRequest struct {
	method string
	path   string
}

func newTestWriter(t *testing.T, cfg Config) (*Writer, *[]recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v4/spreadsheets") {
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123","spreadsheetUrl":"https://example.test/sheet-123"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	return newWriterWithService(srv, cfg, nil), &requests
}

func TestWriterExportCreatesSpreadsheet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	cfg.RetryDelay = time.Millisecond
	writer, requests := newTestWriter(t, cfg)

	id, err := writer.Export(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", id)

	var creates, clears, updates, batchUpdates int
	for _, r := range *requests {
		switch {
		case strings.HasSuffix(r.path, "/v4/spreadsheets"):
			creates++
		case strings.HasSuffix(r.path, ":clear"):
			clears++
		case strings.HasSuffix(r.path, ":batchUpdate"):
			batchUpdates++
		case strings.Contains(r.path, "/values/"):
			updates++
		}
	}

	rows := len(prepareReportData(sampleReport()))
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, clears)
	assert.Equal(t, (rows+9)/10, updates)
	assert.Equal(t, 1, batchUpdates)
}

func TestWriterExportExistingSpreadsheet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	cfg.EnableFormatting = false
	writer, requests := newTestWriter(t, cfg)

	id, err := writer.Export(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "existing", id)

	for _, r := range *requests {
		assert.False(t, strings.HasSuffix(r.path, ":batchUpdate"), "formatting disabled")
		assert.True(t, strings.Contains(r.path, "/v4/spreadsheets/existing"), r.path)
	}
}

func TestNewWriterRejectsInvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestFormatRequests(t *testing.T) {
	reqs := formatRequests(20)
	require.Len(t, reqs, 5)

	currency := reqs[2].RepeatCell
	require.NotNil(t, currency)
	assert.Equal(t, "CURRENCY", currency.Cell.UserEnteredFormat.NumberFormat.Type)
	assert.Equal(t, int64(20), currency.Range.EndRowIndex)
	assert.Equal(t, int64(3), currency.Range.StartColumnIndex)
	assert.Equal(t, int64(matchColumns), reqs[3].AutoResizeDimensions.Dimensions.EndIndex)
	assert.Equal(t, int64(1), reqs[4].UpdateSheetProperties.Properties.GridProperties.FrozenRowCount)
}

func TestNewWriterWithoutCredentials(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewWriter(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
}
