package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"soundmark/fingerprint"
)

// SQLiteIndex is the HashIndex implementation backed by a local sqlite3
// file. It follows the same raw database/sql shape the rest of the
// retrieval pack's sqlite clients use: prepared statements, an explicit
// transaction around bulk inserts, and a single index on the hash column so
// ReturnMatches is always served by an index lookup rather than a scan.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (and, if necessary, initializes) the sqlite database
// at dataSourceName.
func NewSQLiteIndex(dataSourceName string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serializes writers; avoid SQLITE_BUSY storms

	idx := &SQLiteIndex{db: db}
	if err := idx.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			content_hash BLOB NOT NULL UNIQUE,
			fingerprinted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS hashes (
			recording_id INTEGER NOT NULL REFERENCES recordings(id),
			hash TEXT NOT NULL,
			anchor_time INTEGER NOT NULL,
			PRIMARY KEY (recording_id, hash, anchor_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hashes_hash ON hashes(hash)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteIndex) GetRecordings() ([]Recording, error) {
	rows, err := s.db.Query(`SELECT id, name, content_hash, fingerprinted FROM recordings`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var r Recording
		var hashBytes []byte
		var fingerprinted int
		if err := rows.Scan(&r.ID, &r.Name, &hashBytes, &fingerprinted); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		copy(r.ContentHash[:], hashBytes)
		r.Fingerprinted = fingerprinted != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) LookupContentHash(contentHash [20]byte) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM recordings WHERE content_hash = ? AND fingerprinted = 1`,
		contentHash[:],
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lookup content hash: %w", err)
	}
	return count > 0, nil
}

// ErrDuplicateContent is returned by InsertRecording when content_hash is
// already present, regardless of the existing row's fingerprinted state.
var ErrDuplicateContent = errors.New("index: duplicate content hash")

func (s *SQLiteIndex) InsertRecording(name string, contentHash [20]byte) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO recordings (name, content_hash, fingerprinted) VALUES (?, ?, 0)`,
		name, contentHash[:],
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateContent
		}
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteIndex) InsertHashes(recordingID int64, hashes []fingerprint.HashEntry) error {
	if len(hashes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO hashes (recording_id, hash, anchor_time) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hashes {
		if _, err := stmt.Exec(recordingID, h.Hash, h.AnchorTime); err != nil {
			return fmt.Errorf("insert hash: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteIndex) SetFingerprinted(recordingID int64) error {
	_, err := s.db.Exec(`UPDATE recordings SET fingerprinted = 1 WHERE id = ?`, recordingID)
	if err != nil {
		return fmt.Errorf("set fingerprinted: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) DeleteHashes(recordingID int64) error {
	_, err := s.db.Exec(`DELETE FROM hashes WHERE recording_id = ?`, recordingID)
	if err != nil {
		return fmt.Errorf("delete hashes: %w", err)
	}
	return nil
}

// ReturnMatches joins the query's hashes against the index in a single
// IN-clause query (served by idx_hashes_hash). A hash may recur in query at
// several distinct anchor times (sustained/repeated spectral content), so
// every stored row is paired against every query anchor time sharing its
// hash, not just one.
func (s *SQLiteIndex) ReturnMatches(query []fingerprint.HashEntry) ([]Hit, error) {
	if len(query) == 0 {
		return nil, nil
	}

	queryAnchors := make(map[string][]uint32, len(query))
	for _, q := range query {
		queryAnchors[q.Hash] = append(queryAnchors[q.Hash], q.AnchorTime)
	}

	placeholders := make([]string, 0, len(queryAnchors))
	args := make([]any, 0, len(queryAnchors))
	for hash := range queryAnchors {
		placeholders = append(placeholders, "?")
		args = append(args, hash)
	}

	sqlStr := fmt.Sprintf(
		`SELECT recording_id, hash, anchor_time FROM hashes WHERE hash IN (%s)`,
		strings.Join(placeholders, ","),
	)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("return matches: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var recordingID int64
		var hash string
		var storedAnchor int64
		if err := rows.Scan(&recordingID, &hash, &storedAnchor); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		for _, queryAnchor := range queryAnchors[hash] {
			hits = append(hits, Hit{
				RecordingID: recordingID,
				OffsetDelta: storedAnchor - int64(queryAnchor),
			})
		}
	}
	return hits, rows.Err()
}

func (s *SQLiteIndex) GetRecordingByID(recordingID int64) (*Recording, error) {
	var r Recording
	var hashBytes []byte
	var fingerprinted int
	err := s.db.QueryRow(
		`SELECT id, name, content_hash, fingerprinted FROM recordings WHERE id = ?`,
		recordingID,
	).Scan(&r.ID, &r.Name, &hashBytes, &fingerprinted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	copy(r.ContentHash[:], hashBytes)
	r.Fingerprinted = fingerprinted != 0
	return &r, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
