package logsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/user/log-audit/internal/domain"
)

const (
	esTimeout   = 10 * time.Second
	esQuerySize = 10000
)

// ElasticsearchSource fetches error logs from an Elasticsearch cluster
// that backend services ship their access logs to.
type ElasticsearchSource struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewElasticsearchSource creates a source reading from the given index (or
// index pattern, e.g. "service-logs-*").
func NewElasticsearchSource(es *elasticsearch.Client, index string, logger *slog.Logger) *ElasticsearchSource {
	return &ElasticsearchSource{
		es:     es,
		index:  index,
		logger: logger.With("component", "elasticsearch_log_source"),
	}
}

type esHit struct {
	Source esLogDocument `json:"_source"`
}

type esLogDocument struct {
	Service    string    `json:"service"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type esSearchResponse struct {
	Hits struct {
		HitArray []esHit `json:"hits"`
	} `json:"hits"`
}

// FetchErrorLogs runs a bool query over the window: term on service, range
// on timestamp, range status_code >= 400.
func (s *ElasticsearchSource) FetchErrorLogs(ctx context.Context, service string, windowStart, windowEnd time.Time) ([]domain.ErrorOccurrence, error) {
	query := buildErrorLogQuery(service, windowStart, windowEnd)
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query for %s: %w", service, err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := s.es.Search(
		s.es.Search.WithContext(queryCtx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(strings.NewReader(string(queryJSON))),
		s.es.Search.WithSize(esQuerySize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query for %s: %w", service, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query for %s: %s", service, res.String())
	}

	var response esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body for %s: %w", service, err)
	}

	occurrences := make([]domain.ErrorOccurrence, len(response.Hits.HitArray))
	for i, hit := range response.Hits.HitArray {
		doc := hit.Source
		occurrences[i] = domain.ErrorOccurrence{
			Service:    service,
			Method:     doc.Method,
			Path:       doc.Path,
			StatusCode: doc.StatusCode,
			Message:    doc.Message,
			OccurredAt: doc.Timestamp,
		}
	}
	s.logger.Debug("fetched error logs", "service", service, "count", len(occurrences))
	return occurrences, nil
}

func buildErrorLogQuery(service string, windowStart, windowEnd time.Time) map[string]interface{} {
	mustClauses := []map[string]interface{}{
		{
			"term": map[string]interface{}{
				"service": service,
			},
		},
		{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": windowStart.UTC().Format(time.RFC3339),
					"lte": windowEnd.UTC().Format(time.RFC3339),
				},
			},
		},
		{
			"range": map[string]interface{}{
				"status_code": map[string]interface{}{
					"gte": 400,
				},
			},
		},
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": mustClauses,
			},
		},
	}
}
