package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fastpayment/internal/config"
	"fastpayment/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient indexes history log entries for admin search.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// HistoryQuery filters admin history searches.
type HistoryQuery struct {
	Text      string
	Action    string
	PaymentID string
	From      int
	Size      int
}

// historyDocument is the indexed form of a history entry. Details stay a
// JSON object and are also flattened to text for full-text search.
type historyDocument struct {
	ID            int64           `json:"id"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	PaymentID     *string         `json:"payment_id,omitempty"`
	Action        string          `json:"action"`
	Details       json.RawMessage `json:"details"`
	DetailsText   string          `json:"details_text"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		Transport:     &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":             map[string]any{"type": "long"},
				"transaction_id": map[string]any{"type": "long"},
				"payment_id":     map[string]any{"type": "keyword"},
				"action":         map[string]any{"type": "keyword"},
				"details":        map[string]any{"type": "object", "enabled": false},
				"details_text":   map[string]any{"type": "text"},
				"created_at":     map[string]any{"type": "date"},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexHistory upserts a history entry by its id, so redelivered messages do
// not create duplicates.
func (c *ElasticsearchClient) IndexHistory(ctx context.Context, entry *models.HistoryLog) error {
	doc := historyDocument{
		ID:            entry.ID,
		TransactionID: entry.TransactionID,
		PaymentID:     entry.PaymentID,
		Action:        entry.Action,
		Details:       entry.Details,
		DetailsText:   flattenDetails(entry.Details),
		CreatedAt:     entry.CreatedAt,
	}
	if len(doc.Details) == 0 {
		doc.Details = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(entry.ID, 10),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index history entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// SearchHistory returns matching entries, newest first.
func (c *ElasticsearchClient) SearchHistory(ctx context.Context, q HistoryQuery) ([]models.HistoryLog, int64, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}

	searchRequest := map[string]any{
		"query": buildHistoryQuery(q),
		"sort": []map[string]any{
			{"created_at": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "desc"}},
		},
		"from":             q.From,
		"size":             q.Size,
		"track_total_hits": true,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(searchJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source historyDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	logs := make([]models.HistoryLog, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		logs[i] = models.HistoryLog{
			ID:            hit.Source.ID,
			TransactionID: hit.Source.TransactionID,
			PaymentID:     hit.Source.PaymentID,
			Action:        hit.Source.Action,
			Details:       hit.Source.Details,
			CreatedAt:     hit.Source.CreatedAt,
		}
	}

	return logs, response.Hits.Total.Value, nil
}

func buildHistoryQuery(q HistoryQuery) map[string]any {
	must := []map[string]any{}
	filter := []map[string]any{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": []string{"details_text", "payment_id", "action"},
			},
		})
	}
	if q.Action != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"action": q.Action}})
	}
	if q.PaymentID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"payment_id": q.PaymentID}})
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"bool": map[string]any{
			"must":   must,
			"filter": filter,
		},
	}
}

// flattenDetails renders "key value" pairs of a details object.
func flattenDetails(details json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(details, &fields); err != nil {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s %v", k, v))
	}
	return strings.Join(parts, " ")
}

func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
