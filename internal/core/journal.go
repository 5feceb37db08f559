package core

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	dataDirName     = ".restruct"
	journalFileName = "journal.sqlite"
)

// Journal stores applied sessions so they can be reverted.
type Journal struct {
	db *sql.DB
}

// Session is one journaled apply.
type Session struct {
	ID        int64
	StartedAt time.Time
	Root      string
	Status    string
	Message   string
	Reverted  bool
	Moves     []Move
	Files     []JournalFile
}

// JournalFile is the pre-edit content of one rewritten file.
type JournalFile struct {
	Path       string // pre-move path
	At         string // location written by the apply
	Original   []byte
	AppliedSHA string
}

func journalPath(root string) string {
	return filepath.Join(root, dataDirName, journalFileName)
}

func ensureDataDir(root string) (string, error) {
	dir := filepath.Join(root, dataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func openDBAt(path string) (*sql.DB, error) {
	return sql.Open("sqlite", fmt.Sprintf("file:%s", path))
}

// OpenJournal opens (creating if needed) the journal under root.
func OpenJournal(root string) (*Journal, error) {
	if _, err := ensureDataDir(root); err != nil {
		return nil, err
	}
	db, err := openDBAt(journalPath(root))
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// JournalExists reports whether root has a journal file.
func JournalExists(root string) bool {
	return fileExists(journalPath(root))
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id         INTEGER PRIMARY KEY,
			started_at INTEGER NOT NULL,
			root       TEXT NOT NULL,
			status     TEXT NOT NULL,
			message    TEXT,
			reverted   INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS moves (
			session_id INTEGER NOT NULL,
			seq        INTEGER NOT NULL,
			old_path   TEXT NOT NULL,
			new_path   TEXT NOT NULL,
			PRIMARY KEY(session_id, seq),
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			session_id     INTEGER NOT NULL,
			path           TEXT NOT NULL,
			new_path       TEXT NOT NULL,
			original       BLOB NOT NULL,
			applied_sha256 TEXT NOT NULL,
			PRIMARY KEY(session_id, path),
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_reverted ON sessions(reverted, id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores an applied result and returns its session id.
func (j *Journal) Record(root string, res *ApplyResult) (int64, error) {
	tx, err := j.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	r, err := tx.Exec(`INSERT INTO sessions(started_at, root, status, message) VALUES (?, ?, ?, ?)`,
		time.Now().Unix(), root, string(StageDone),
		fmt.Sprintf("moved %d file(s), edited %d file(s)", len(res.Moved), len(res.Edited)))
	if err != nil {
		return 0, err
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, mv := range res.Moved {
		if _, err := tx.Exec(`INSERT INTO moves(session_id, seq, old_path, new_path) VALUES (?, ?, ?, ?)`,
			id, i, mv.Old, mv.New); err != nil {
			return 0, err
		}
	}
	for _, f := range res.Edited {
		if _, err := tx.Exec(`INSERT INTO files(session_id, path, new_path, original, applied_sha256) VALUES (?, ?, ?, ?, ?)`,
			id, f.Path, f.At, f.Original, contentHash(f.Updated)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the newest session that has not been reverted, with its
// moves and files. ErrNoSession is returned when there is none.
func (j *Journal) Latest() (*Session, error) {
	row := j.db.QueryRow(`SELECT id, started_at, root, status, COALESCE(message, ''), reverted
		FROM sessions WHERE reverted = 0 ORDER BY id DESC LIMIT 1`)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if err := j.loadDetails(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Sessions lists every session, newest first, with moves but without file contents.
func (j *Journal) Sessions() ([]Session, error) {
	rows, err := j.db.Query(`SELECT id, started_at, root, status, COALESCE(message, ''), reverted
		FROM sessions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		moves, err := j.moves(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Moves = moves
	}
	return out, nil
}

// MarkReverted flags a session as undone.
func (j *Journal) MarkReverted(id int64) error {
	r, err := j.db.Exec(`UPDATE sessions SET reverted = 1, status = 'reverted' WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var started int64
	var reverted int
	if err := row.Scan(&s.ID, &started, &s.Root, &s.Status, &s.Message, &reverted); err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(started, 0)
	s.Reverted = reverted != 0
	return &s, nil
}

func (j *Journal) loadDetails(s *Session) error {
	moves, err := j.moves(s.ID)
	if err != nil {
		return err
	}
	s.Moves = moves

	rows, err := j.db.Query(`SELECT path, new_path, original, applied_sha256 FROM files WHERE session_id = ? ORDER BY path`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var f JournalFile
		if err := rows.Scan(&f.Path, &f.At, &f.Original, &f.AppliedSHA); err != nil {
			return err
		}
		s.Files = append(s.Files, f)
	}
	return rows.Err()
}

func (j *Journal) moves(id int64) ([]Move, error) {
	rows, err := j.db.Query(`SELECT old_path, new_path FROM moves WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Move
	for rows.Next() {
		var mv Move
		if err := rows.Scan(&mv.Old, &mv.New); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
