// Package search provides full-text search over captured run results.
package search

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/triagekit/probekit/bus"
	"github.com/triagekit/probekit/logging"
	"github.com/triagekit/probekit/results"
)

// Document is the indexed form of a run result. Output streams are
// analyzed for full-text matching; the tool id is an exact-match keyword.
type Document struct {
	RunID     string    `json:"run_id"`
	ToolID    string    `json:"tool_id"`
	Title     string    `json:"title"`
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	Success   bool      `json:"success"`
	StartedAt time.Time `json:"started_at"`
}

// Hit is one search match.
type Hit struct {
	RunID  string
	ToolID string
	Title  string
	Score  float64
}

// Index is a full-text index over run results. Results are keyed by tool
// id, so indexing a new run for a tool replaces the previous one, the
// same overwrite discipline the result store uses.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	log   *logging.Logger
	sub   bus.Subscription
	done  chan struct{}
}

// Config configures an Index.
type Config struct {
	// Path is the on-disk index location. Empty builds an in-memory
	// index.
	Path string

	Logger *logging.Logger
}

// NewIndex opens or creates a search index.
func NewIndex(cfg Config) (*Index, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	var idx bleve.Index
	var err error
	if cfg.Path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		idx, err = bleve.Open(cfg.Path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(cfg.Path, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	return &Index{
		index: idx,
		log:   log.WithComponent("search"),
		done:  make(chan struct{}),
	}, nil
}

// buildIndexMapping creates the Bleve index mapping for run documents.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()
	boolFieldMapping := bleve.NewBooleanFieldMapping()

	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("stdout", textFieldMapping)
	docMapping.AddFieldMappingsAt("stderr", textFieldMapping)
	docMapping.AddFieldMappingsAt("tool_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("run_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("success", boolFieldMapping)
	docMapping.AddFieldMappingsAt("started_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// IndexResult adds or replaces the document for a run result.
func (i *Index) IndexResult(r *results.RunResult) error {
	if r == nil || r.ID == "" {
		return nil
	}

	doc := Document{
		RunID:     r.RunID,
		ToolID:    r.ID,
		Title:     r.Title,
		Stdout:    r.Stdout,
		Stderr:    r.Stderr,
		Success:   r.Success,
		StartedAt: r.StartedAt,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.index.Index(r.ID, doc); err != nil {
		return fmt.Errorf("failed to index run: %w", err)
	}
	return nil
}

// SearchOptions narrow a query.
type SearchOptions struct {
	// ToolID restricts matches to one tool.
	ToolID string

	// Limit caps the number of hits. Default 10.
	Limit int
}

// Search runs a full-text query over the indexed results.
func (i *Index) Search(queryText string, opts SearchOptions) ([]Hit, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	matchQuery := bleve.NewMatchQuery(queryText)

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(matchQuery)
	if opts.ToolID != "" {
		toolQuery := bleve.NewTermQuery(opts.ToolID)
		toolQuery.SetField("tool_id")
		boolQuery.AddMust(toolQuery)
	}

	searchReq := bleve.NewSearchRequest(boolQuery)
	searchReq.Size = opts.Limit
	searchReq.Fields = []string{"run_id", "tool_id", "title"}

	i.mu.RLock()
	searchResult, err := i.index.Search(searchReq)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(searchResult.Hits))
	for _, h := range searchResult.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["run_id"].(string); ok {
			hit.RunID = v
		}
		if v, ok := h.Fields["tool_id"].(string); ok {
			hit.ToolID = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Watch subscribes to run-completion events and indexes each result as
// it arrives. Malformed events are logged and skipped.
func (i *Index) Watch(b bus.EventBus) error {
	sub, err := b.Subscribe(bus.SubjectRunCompleted)
	if err != nil {
		return fmt.Errorf("failed to subscribe to run events: %w", err)
	}
	i.sub = sub

	go func() {
		for {
			select {
			case msg, ok := <-sub.Messages():
				if !ok {
					return
				}
				var r results.RunResult
				if err := json.Unmarshal(msg.Data, &r); err != nil {
					i.log.Warn("bad_run_event", map[string]interface{}{"error": err.Error()})
					continue
				}
				if err := i.IndexResult(&r); err != nil {
					i.log.Warn("index_failed", map[string]interface{}{
						"tool":  r.ID,
						"error": err.Error(),
					})
				}
			case <-i.done:
				return
			}
		}
	}()
	return nil
}

// Close stops watching and releases the index.
func (i *Index) Close() error {
	close(i.done)
	if i.sub != nil {
		i.sub.Unsubscribe()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
