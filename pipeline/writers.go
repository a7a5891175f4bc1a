package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// WriteError reports an output destination that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// CSVWriter writes records to a CSV file with a header row.
type CSVWriter struct {
	path string
}

// NewCSVWriter returns a writer targeting filename.
func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{path: filename}
}

// Path returns the destination file.
func (cw *CSVWriter) Path() string {
	return cw.path
}

// Write replaces the destination with the header and one row per record.
func (cw *CSVWriter) Write(records []models.CatalogRecord) error {
	return writeFileAtomic(cw.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(models.RecordFields); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, record := range records {
			if err := writer.Write(record.Values()); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		return nil
	})
}

// Validate reads the file back and checks it parses.
func (cw *CSVWriter) Validate() error {
	if _, err := ReadCSV(cw.path); err != nil {
		return fmt.Errorf("validate csv output: %w", err)
	}
	return nil
}

// ReadCSV loads records written by CSVWriter.
func ReadCSV(filename string) ([]models.CatalogRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(models.RecordFields)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !slices.Equal(header, models.RecordFields) {
		return nil, fmt.Errorf("unexpected csv header %v", header)
	}

	records := []models.CatalogRecord{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		record, _ := models.RecordFromValues(row)
		records = append(records, record)
	}
	return records, nil
}

// JSONWriter writes records as an indented JSON array.
type JSONWriter struct {
	path string
}

// NewJSONWriter returns a writer targeting filename.
func NewJSONWriter(filename string) *JSONWriter {
	return &JSONWriter{path: filename}
}

// Path returns the destination file.
func (jw *JSONWriter) Path() string {
	return jw.path
}

// Write replaces the destination with a JSON array of records. Values are
// written as UTF-8 without HTML escaping.
func (jw *JSONWriter) Write(records []models.CatalogRecord) error {
	if records == nil {
		records = []models.CatalogRecord{}
	}
	return writeFileAtomic(jw.path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return fmt.Errorf("encode json records: %w", err)
		}
		return nil
	})
}

// Validate reads the file back and checks it parses.
func (jw *JSONWriter) Validate() error {
	if _, err := ReadJSON(jw.path); err != nil {
		return fmt.Errorf("validate json output: %w", err)
	}
	return nil
}

// ReadJSON loads records written by JSONWriter.
func ReadJSON(filename string) ([]models.CatalogRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()

	decoder := json.NewDecoder(bufio.NewReader(f))
	decoder.DisallowUnknownFields()

	var records []models.CatalogRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("json file does not hold an array")
	}
	return records, nil
}

// writeFileAtomic writes to a temporary file next to filename and renames
// it into place, leaving any previous file untouched on failure.
func writeFileAtomic(filename string, write func(io.Writer) error) (err error) {
	if err := ensureDir(filename); err != nil {
		return &WriteError{Path: filename, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffer := bufio.NewWriter(tmp)
	if err := write(buffer); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	if err := buffer.Flush(); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
