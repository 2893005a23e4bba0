package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fastpayment/internal/config"
	"fastpayment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodHead && r.URL.Path == "/history_logs" {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewElasticsearchClient(config.ElasticsearchConfig{
		URL:        srv.URL,
		Index:      "history_logs",
		MaxRetries: 0,
		Timeout:    2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestIndexHistory_UsesEntryIDAsDocumentID(t *testing.T) {
	var gotPath string
	var gotDoc map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	paymentID := "555"
	err := c.IndexHistory(context.Background(), &models.HistoryLog{
		ID:        42,
		PaymentID: &paymentID,
		Action:    models.ActionPaymentApproved,
		Details:   json.RawMessage(`{"external_reference":"FP-7-3-abc"}`),
		CreatedAt: time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "/history_logs/_doc/42", gotPath)
	assert.Equal(t, "payment_approved", gotDoc["action"])
	assert.Contains(t, gotDoc["details_text"], "FP-7-3-abc")
}

func TestSearchHistory(t *testing.T) {
	var query map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_search"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &query)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_source":{"id":42,"payment_id":"555","action":"payment_approved","details":{"amount_cents":5000},"created_at":"2026-04-02T15:00:00Z"}}]}}`))
	})

	logs, total, err := c.SearchHistory(context.Background(), HistoryQuery{Text: "FP-7", Action: "payment_approved"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(42), logs[0].ID)
	assert.Equal(t, "555", *logs[0].PaymentID)
	assert.Contains(t, query, "query")
	assert.EqualValues(t, 20, query["size"])
}

func TestBuildHistoryQuery_MatchAllWithoutFilters(t *testing.T) {
	q := buildHistoryQuery(HistoryQuery{})
	assert.Contains(t, q, "match_all")
}
