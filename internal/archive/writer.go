package archive

import (
	"bytes"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of results to buffer before flushing to the database.
	DefaultBatchSize = 50
)

// Writer appends results to an archive database.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []Entry
	pending   map[string]struct{}
	metadata  Metadata
	batchSize int
	mu        sync.Mutex
}

// Create opens or creates an archive at path. Existing results are kept;
// metadata is replaced.
func Create(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]Entry, 0, DefaultBatchSize),
		pending:   make(map[string]struct{}),
		batchSize: DefaultBatchSize,
		metadata:  metadata,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS results (
			name TEXT NOT NULL,
			content_key TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			passes INTEGER NOT NULL,
			seed INTEGER,
			created_at INTEGER NOT NULL,
			image BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS result_name ON results (name);
		CREATE INDEX IF NOT EXISTS result_key ON results (content_key);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// Put adds a result to the batch, replacing any earlier result with the same
// name. When the batch is full, it is flushed. The PNG is gzip-compressed
// before storage.
func (w *Writer) Put(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("result name is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, e)
	w.pending[e.Key] = struct{}{}

	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}

	return nil
}

// HasKey reports whether a result with this content key is archived or pending.
func (w *Writer) HasKey(key string) (bool, error) {
	w.mu.Lock()
	_, ok := w.pending[key]
	w.mu.Unlock()
	if ok {
		return true, nil
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM results WHERE content_key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query content key: %w", err)
	}
	return n > 0, nil
}

// Flush writes any buffered results to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes buffered results. Must be called with lock held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO results
		(name, content_key, width, height, passes, seed, created_at, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range w.batch {
		compressed, err := gzipCompress(e.PNG)
		if err != nil {
			return fmt.Errorf("failed to compress result %s: %w", e.Name, err)
		}

		var seed sql.NullInt64
		if e.Seed != nil {
			seed = sql.NullInt64{Int64: *e.Seed, Valid: true}
		}

		if _, err := stmt.Exec(e.Name, e.Key, e.Width, e.Height, e.Passes, seed,
			e.CreatedAt.Unix(), compressed); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	clear(w.pending)
	return nil
}

// Close flushes any remaining results and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
