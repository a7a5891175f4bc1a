package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// MultiWriter fans the record sequence out to several writers. Every writer
// runs even when an earlier one fails; failures are joined.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter combines the given writers, ignoring nil entries.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Writers returns the combined writers.
func (mw *MultiWriter) Writers() []OutputWriter {
	return mw.writers
}

// Path lists the destinations, comma separated.
func (mw *MultiWriter) Path() string {
	paths := make([]string, 0, len(mw.writers))
	for _, w := range mw.writers {
		paths = append(paths, w.Path())
	}
	return strings.Join(paths, ", ")
}

// Write writes records to every destination.
func (mw *MultiWriter) Write(records []models.CatalogRecord) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate validates every destination.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Path(), err))
		}
	}
	return errors.Join(errs...)
}
