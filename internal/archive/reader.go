package archive

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Reader reads results from an archive database.
type Reader struct {
	db   *sql.DB
	path string
}

// Open opens an archive for reading.
func Open(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='results'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain results table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// Get returns the named result with its PNG decompressed.
func (r *Reader) Get(name string) (Entry, error) {
	row := r.db.QueryRow(`SELECT name, content_key, width, height, passes, seed, created_at, image
		FROM results WHERE name = ?`, name)
	return scanEntry(row, name)
}

// FindByKey returns the most recent result with the given content key.
func (r *Reader) FindByKey(key string) (Entry, error) {
	row := r.db.QueryRow(`SELECT name, content_key, width, height, passes, seed, created_at, image
		FROM results WHERE content_key = ? ORDER BY created_at DESC LIMIT 1`, key)
	return scanEntry(row, key)
}

func scanEntry(row *sql.Row, what string) (Entry, error) {
	var (
		e          Entry
		seed       sql.NullInt64
		created    int64
		compressed []byte
	)
	err := row.Scan(&e.Name, &e.Key, &e.Width, &e.Height, &e.Passes, &seed, &created, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query result: %w", err)
	}

	e.PNG, err = gzipDecompress(compressed)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to decompress result %s: %w", e.Name, err)
	}
	if seed.Valid {
		v := seed.Int64
		e.Seed = &v
	}
	e.CreatedAt = time.Unix(created, 0)
	return e, nil
}

// List returns all results ordered by name, without payloads.
func (r *Reader) List() ([]Info, error) {
	rows, err := r.db.Query(`SELECT name, content_key, width, height, passes, seed, created_at, length(image)
		FROM results ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info    Info
			seed    sql.NullInt64
			created int64
		)
		if err := rows.Scan(&info.Name, &info.Key, &info.Width, &info.Height, &info.Passes,
			&seed, &created, &info.Size); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		if seed.Valid {
			v := seed.Int64
			info.Seed = &v
		}
		info.CreatedAt = time.Unix(created, 0)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return out, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        metaMap["name"],
		Description: metaMap["description"],
		Version:     metaMap["version"],
		Compression: metaMap["compression"],
	}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
