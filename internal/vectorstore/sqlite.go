package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/loader"
)

const sqliteDBFile = "vectors.db"

// sqliteStore persists vectors in a sqlite-vec vec0 virtual table. vec0
// tables use integer rowids, so a chunks mapping table links the opaque
// chunk uuid and source path to each embedding row.
type sqliteStore struct {
	db     *sql.DB
	prov   embeddings.Provider
	logger zerolog.Logger
	dim    int
}

func openSQLite(dir string, prov embeddings.Provider, logger zerolog.Logger) (Store, error) {
	sqlite_vec.Auto()

	path := filepath.Join(dir, sqliteDBFile)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", path, err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot create meta table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid    INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			source   TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot create chunks table: %w", err)
	}

	s := &sqliteStore{db: db, prov: prov, logger: logger}

	// The vec0 table needs the embedding dimension up front, which is not
	// known until the first embed call. Recreate it from recorded meta when
	// the store has been written before.
	var dimStr string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'dim'`).Scan(&dimStr)
	switch err {
	case nil:
		dim, convErr := strconv.Atoi(dimStr)
		if convErr != nil || dim <= 0 {
			_ = db.Close()
			return nil, fmt.Errorf("invalid recorded embedding dim: %q", dimStr)
		}
		if err := s.createVecTable(dim); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.dim = dim
	case sql.ErrNoRows:
		// fresh store
	default:
		_ = db.Close()
		return nil, fmt.Errorf("cannot read meta table: %w", err)
	}

	logger.Debug().
		Str("db_path", path).
		Int("dim", s.dim).
		Str("vec_version", vecVersion).
		Msg("sqlite vector store opened")

	return s, nil
}

func (s *sqliteStore) createVecTable(dim int) error {
	create := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[%d])`, dim)
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("cannot create vec0 table: %w", err)
	}
	return nil
}

// ensureDim records the embedding dimension on first use and creates the
// vec0 table sized to it.
func (s *sqliteStore) ensureDim(dim int) error {
	if s.dim != 0 {
		if dim != s.dim {
			return fmt.Errorf("embedding dim changed: got %d want %d", dim, s.dim)
		}
		return nil
	}
	if err := s.createVecTable(dim); err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO meta(key, value) VALUES ('dim', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(dim),
	); err != nil {
		return fmt.Errorf("cannot record embedding dim: %w", err)
	}
	s.dim = dim
	return nil
}

// serializeFloat32 converts a vector to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func (s *sqliteStore) BulkBuild(ctx context.Context, chunks []loader.Chunk) (map[string][]string, error) {
	out := make(map[string][]string)
	ids, err := s.insertChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	for i, c := range chunks {
		out[c.Source] = append(out[c.Source], ids[i])
	}
	return out, nil
}

func (s *sqliteStore) Insert(ctx context.Context, chunks []loader.Chunk) ([]string, error) {
	return s.insertChunks(ctx, chunks)
}

func (s *sqliteStore) insertChunks(ctx context.Context, chunks []loader.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	// Embed outside the transaction: embedding calls are slow and may fail.
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, err := s.prov.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("cannot embed chunk of %s: %w", c.Source, err)
		}
		if err := s.ensureDim(len(vec)); err != nil {
			return nil, err
		}
		vecs[i] = vec
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(chunk_id, source) VALUES (?, ?)`, id, c.Source)
		if err != nil {
			return nil, fmt.Errorf("cannot insert chunk for %s: %w", c.Source, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("cannot get rowid for chunk of %s: %w", c.Source, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_chunks(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(vecs[i]),
		); err != nil {
			return nil, fmt.Errorf("cannot insert embedding for %s: %w", c.Source, err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("cannot commit insert: %w", err)
	}

	s.logger.Debug().Int("count", len(chunks)).Msg("inserted chunks")
	return ids, nil
}

func (s *sqliteStore) DeleteByID(ctx context.Context, id string) error {
	var rowID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT rowid FROM chunks WHERE chunk_id = ?`, id).Scan(&rowID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("chunk id not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("cannot look up chunk %s: %w", id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_chunks WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("cannot delete embedding %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("cannot delete chunk %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit delete: %w", err)
	}
	return nil
}

func (s *sqliteStore) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if s.dim == 0 {
		return nil, nil
	}

	qv, err := s.prov.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("cannot embed query: %w", err)
	}
	if len(qv) != s.dim {
		return nil, fmt.Errorf("query embedding dim mismatch: got %d want %d", len(qv), s.dim)
	}
	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.source, v.distance
		FROM vec_chunks v
		INNER JOIN chunks c ON c.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND v.k = ?
		ORDER BY v.distance
	`, serializeFloat32(qv), k)
	if err != nil {
		return nil, fmt.Errorf("cannot query vectors: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var distance float64
		if err := rows.Scan(&h.ChunkID, &h.Source, &distance); err != nil {
			return nil, fmt.Errorf("cannot scan query result: %w", err)
		}
		// lower distance = higher similarity
		h.Score = 1.0 / (1.0 + distance)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate query results: %w", err)
	}
	return hits, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
