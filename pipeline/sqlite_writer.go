package pipeline

import (
	"database/sql"
	"fmt"

	"github.com/aluiziolira/go-scrape-catalog/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE books (
	position     INTEGER PRIMARY KEY,
	title        TEXT NOT NULL,
	price        TEXT NOT NULL,
	rating       TEXT NOT NULL,
	availability TEXT NOT NULL,
	book_url     TEXT NOT NULL,
	image_url    TEXT NOT NULL,
	category     TEXT NOT NULL
)`

// SQLiteWriter stores records in a "books" table, replacing it on each run.
type SQLiteWriter struct {
	path string
}

// NewSQLiteWriter returns a writer targeting the database at filename.
func NewSQLiteWriter(filename string) *SQLiteWriter {
	return &SQLiteWriter{path: filename}
}

// Path returns the database file.
func (sw *SQLiteWriter) Path() string {
	return sw.path
}

// Write replaces the books table inside a single transaction.
func (sw *SQLiteWriter) Write(records []models.CatalogRecord) error {
	if err := ensureDir(sw.path); err != nil {
		return &WriteError{Path: sw.path, Err: err}
	}
	db, err := sql.Open("sqlite", sw.path)
	if err != nil {
		return &WriteError{Path: sw.path, Err: fmt.Errorf("open database: %w", err)}
	}
	defer db.Close()

	if err := replaceBooks(db, records); err != nil {
		return &WriteError{Path: sw.path, Err: err}
	}
	return nil
}

func replaceBooks(db *sql.DB, records []models.CatalogRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS books`); err != nil {
		return fmt.Errorf("drop books table: %w", err)
	}
	if _, err := tx.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO books
		(position, title, price, rating, availability, book_url, image_url, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.Title, r.Price, string(r.Rating), r.Availability, r.BookURL, r.ImageURL, r.Category); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Validate reads the table back and checks it parses.
func (sw *SQLiteWriter) Validate() error {
	if _, err := ReadSQLite(sw.path); err != nil {
		return fmt.Errorf("validate sqlite output: %w", err)
	}
	return nil
}

// ReadSQLite loads records written by SQLiteWriter in their original order.
func ReadSQLite(filename string) ([]models.CatalogRecord, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT title, price, rating, availability, book_url, image_url, category
		FROM books ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	records := []models.CatalogRecord{}
	for rows.Next() {
		var r models.CatalogRecord
		var rating string
		if err := rows.Scan(&r.Title, &r.Price, &rating, &r.Availability, &r.BookURL, &r.ImageURL, &r.Category); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		r.Rating = models.Rating(rating)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return records, nil
}
