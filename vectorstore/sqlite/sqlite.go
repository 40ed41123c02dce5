// Package sqlite provides a disk-resident implementation of the vectorstore
// contract backed by the pure-Go modernc.org/sqlite driver.
//
// Records live in a single table with the embedding stored as a
// little-endian float32 BLOB. Queries are a brute-force cosine scan in Go;
// for the corpus sizes this engine targets (tens of thousands of images)
// that is fast enough and keeps the on-disk format trivial. The database is
// reopenable by path alone and survives process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/hupe1980/imgsim/distance"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Compile-time check to ensure Store satisfies the contract.
var _ vectorstore.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id            TEXT PRIMARY KEY,
	vector        BLOB NOT NULL,
	dim           INTEGER NOT NULL,
	file_size     INTEGER NOT NULL,
	modified_time INTEGER NOT NULL,
	file_name     TEXT NOT NULL
);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	return &Store{db: db}, nil
}

// Upsert inserts or overwrites the record for rec.ID. Last write wins.
func (s *Store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	vec, ok := distance.NormalizeL2Copy(rec.Vector)
	if !ok {
		return vectorstore.ErrZeroVector
	}

	if dim, err := s.dimension(ctx); err != nil {
		return err
	} else if dim > 0 && dim != len(vec) {
		return &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, vector, dim, file_size, modified_time, file_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			dim = excluded.dim,
			file_size = excluded.file_size,
			modified_time = excluded.modified_time,
			file_name = excluded.file_name`,
		rec.ID, encodeVector(vec), len(vec),
		rec.Metadata.FileSize, rec.Metadata.ModifiedTime, rec.Metadata.FileName,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return nil
}

// Get returns the record for id, or vectorstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (vectorstore.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT vector, file_size, modified_time, file_name
		FROM records WHERE id = ?`, id)

	var blob []byte
	rec := vectorstore.Record{ID: id}
	err := row.Scan(&blob, &rec.Metadata.FileSize, &rec.Metadata.ModifiedTime, &rec.Metadata.FileName)
	if err == sql.ErrNoRows {
		return vectorstore.Record{}, vectorstore.ErrNotFound
	}
	if err != nil {
		return vectorstore.Record{}, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	rec.Vector, err = decodeVector(blob)
	if err != nil {
		return vectorstore.Record{}, err
	}
	return rec, nil
}

// Query scans every record and returns the k nearest by cosine distance,
// ties broken by id.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]vectorstore.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil // empty collection
	}
	if len(vec) != dim {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}

	q, ok := distance.NormalizeL2Copy(vec)
	if !ok {
		return nil, vectorstore.ErrZeroVector
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector, file_size, modified_time, file_name FROM records`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	defer rows.Close()

	var results []vectorstore.QueryResult
	for rows.Next() {
		var (
			id   string
			blob []byte
			meta vectorstore.Metadata
		)
		if err := rows.Scan(&id, &blob, &meta.FileSize, &meta.ModifiedTime, &meta.FileName); err != nil {
			return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
		}

		stored, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}

		results = append(results, vectorstore.QueryResult{
			ID:       id,
			Distance: distance.Cosine(q, stored),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count returns the number of distinct ids in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return n, nil
}

// DeleteAll removes every record, leaving the schema in place.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// dimension returns the dimensionality of the stored vectors, 0 when empty.
// A single dim is enforced at upsert time, so any row is representative.
func (s *Store) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dim FROM records LIMIT 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return dim, nil
}

// encodeVector serializes a vector as little-endian float32 bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// decodeVector deserializes little-endian float32 bytes.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("sqlite: corrupt vector blob of %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
