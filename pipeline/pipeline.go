// Package pipeline accumulates scraped records and writes them out.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after Flush or Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter serialises the final record sequence to a destination.
type OutputWriter interface {
	Write(records []models.CatalogRecord) error
	Validate() error
	Path() string
}

// Pipeline validates records and keeps them in arrival order until they are
// flushed to the writers.
type Pipeline struct {
	mu      sync.Mutex
	records []models.CatalogRecord
	closed  bool

	metrics *metrics
}

// NewPipeline builds an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		metrics: newMetrics(),
	}
}

// Process appends records in the order given. Records with unpopulated
// fields are counted and dropped.
func (p *Pipeline) Process(records ...models.CatalogRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	for _, record := range records {
		if err := parser.ValidateRecord(record); err != nil {
			p.metrics.addValidation("incomplete_record")
			slog.Warn("dropping incomplete record", slog.Any("error", err))
			continue
		}
		p.records = append(p.records, record)
		p.metrics.incrementProcessed()
	}
	return nil
}

// Records returns a copy of the accepted records.
func (p *Pipeline) Records() []models.CatalogRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.CatalogRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Len returns the number of accepted records.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Close prevents further submissions.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Flush closes the pipeline and hands the full record sequence to w.
func (p *Pipeline) Flush(w OutputWriter) error {
	p.Close()
	records := p.Records()
	if err := w.Write(records); err != nil {
		return fmt.Errorf("flush %d records: %w", len(records), err)
	}
	slog.Info("records written", slog.String("path", w.Path()), slog.Int("records", len(records)))
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"validation_errors": copyValidation,
	}
}
