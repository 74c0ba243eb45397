// Package elasticsearch mirrors a master table into a searchable variant
// index, one document per row.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"

	"github.com/Jeffail/gabs"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/mitchellh/mapstructure"
)

const indexPrefix = "extended-variants"

// maximum number of failure reasons kept in IndexStats
const maxReportedFailures = 10

type VariantDocument struct {
	Id          string                 `json:"id" mapstructure:"id"`
	AssemblyId  string                 `json:"assemblyId" mapstructure:"assemblyId"`
	Key         map[string]string      `json:"key" mapstructure:"key"`
	Sources     []string               `json:"sources" mapstructure:"sources"`
	Annotations map[string]interface{} `json:"annotations,omitempty" mapstructure:"annotations"`
	Validations map[string]bool        `json:"validations,omitempty" mapstructure:"validations"`
}

type IndexStats struct {
	Index    string   `json:"index"`
	Indexed  uint64   `json:"indexed"`
	Failed   uint64   `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

func IndexName(genome constants.GenomeVersion) string {
	return fmt.Sprintf("%s-%s", indexPrefix, genome)
}

// DocumentId renders the row key as chr:pos:ref:alt (or whatever the key
// convention of the table is).
func DocumentId(k table.Key) string {
	return k.String()
}

// NewDocument flattens a master row into its indexed form: indicator
// columns set to true become the sources list.
func NewDocument(schema table.Schema, row *table.Row, assembly constants.AssemblyId) VariantDocument {
	doc := VariantDocument{
		Id:         DocumentId(row.Key),
		AssemblyId: string(assembly),
		Key:        make(map[string]string, len(schema.KeyCols)),
		Sources:    []string{},
	}
	for i, c := range schema.KeyCols {
		doc.Key[c] = row.Key.Values[i]
	}
	for _, c := range schema.Indicators {
		if row.Indicator(c) {
			doc.Sources = append(doc.Sources, c)
		}
	}
	for _, c := range schema.Annotations {
		if v, ok := row.Get(c); ok {
			if doc.Annotations == nil {
				doc.Annotations = map[string]interface{}{}
			}
			doc.Annotations[c] = v
		}
	}
	for _, c := range schema.Validations {
		if v, ok := row.Get(c); ok {
			if doc.Validations == nil {
				doc.Validations = map[string]bool{}
			}
			doc.Validations[c] = table.Truthy(v)
		}
	}
	return doc
}

// IndexMaster replaces the content of the index with the rows of the master
// table.
func IndexMaster(ctx context.Context, es *es7.Client, index string, assembly constants.AssemblyId, m *table.Master, workers int) (*IndexStats, error) {
	if es == nil {
		return nil, fmt.Errorf("no elasticsearch client configured")
	}
	if workers < 1 {
		workers = 1
	}

	res, err := es.Indices.Delete([]string{index},
		es.Indices.Delete.WithContext(ctx),
		es.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return nil, fmt.Errorf("deleting index %s: %w", index, err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return nil, fmt.Errorf("deleting index %s: %s", index, res.Status())
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      index,
		Client:     es,
		NumWorkers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bulk indexer: %w", err)
	}

	stats := &IndexStats{Index: index}
	var failuresMux sync.Mutex
	onFailure := func(_ context.Context, item esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
		failuresMux.Lock()
		defer failuresMux.Unlock()
		if len(stats.Failures) >= maxReportedFailures {
			return
		}
		if err != nil {
			stats.Failures = append(stats.Failures, fmt.Sprintf("%s: %s", item.DocumentID, err))
		} else {
			stats.Failures = append(stats.Failures, fmt.Sprintf("%s: %s: %s", item.DocumentID, resp.Error.Type, resp.Error.Reason))
		}
	}

	schema := m.Schema()
	for _, row := range m.Rows() {
		doc := NewDocument(schema, row, assembly)
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding document %s: %w", doc.Id, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.Id,
			Body:       bytes.NewReader(data),
			OnFailure:  onFailure,
		})
		if err != nil {
			bi.Close(ctx)
			return nil, fmt.Errorf("queueing document %s: %w", doc.Id, err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return nil, fmt.Errorf("flushing bulk indexer: %w", err)
	}

	biStats := bi.Stats()
	stats.Indexed = biStats.NumFlushed
	stats.Failed = biStats.NumFailed

	rres, err := es.Indices.Refresh(es.Indices.Refresh.WithContext(ctx), es.Indices.Refresh.WithIndex(index))
	if err != nil {
		return stats, fmt.Errorf("refreshing index %s: %w", index, err)
	}
	rres.Body.Close()

	return stats, nil
}

func CountDocuments(ctx context.Context, es *es7.Client, index string) (int, error) {
	res, err := es.Count(es.Count.WithContext(ctx), es.Count.WithIndex(index))
	if err != nil {
		return 0, err
	}
	parsed, err := parseResponse(res.Body, res.IsError(), res.Status())
	if err != nil {
		return 0, err
	}
	count, ok := parsed.Path("count").Data().(float64)
	if !ok {
		return 0, fmt.Errorf("count response carries no count")
	}
	return int(count), nil
}

// GetDocuments pages through the index in document id order. An optional
// source restricts the hits to rows reported by that source.
func GetDocuments(ctx context.Context, es *es7.Client, index string, source string, from int, size int) ([]VariantDocument, error) {
	query := map[string]interface{}{
		"sort": []map[string]interface{}{{"id.keyword": "asc"}},
	}
	if source != "" {
		query["query"] = map[string]interface{}{
			"term": map[string]interface{}{"sources.keyword": source},
		}
	} else {
		query["query"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
		es.Search.WithFrom(from),
		es.Search.WithSize(size),
	)
	if err != nil {
		return nil, err
	}
	parsed, err := parseResponse(res.Body, res.IsError(), res.Status())
	if err != nil {
		return nil, err
	}

	hits, _ := parsed.Path("hits.hits").Children()
	docs := make([]VariantDocument, 0, len(hits))
	for _, hit := range hits {
		var doc VariantDocument
		if err := mapstructure.Decode(hit.Path("_source").Data(), &doc); err != nil {
			return nil, fmt.Errorf("decoding hit: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseResponse(body io.ReadCloser, isError bool, status string) (*gabs.Container, error) {
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if isError {
		return nil, fmt.Errorf("elasticsearch responded %s: %s", status, strings.TrimSpace(string(raw)))
	}
	parsed, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return parsed, nil
}
