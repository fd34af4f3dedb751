package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"teamboard-cli/internal/logging"

	_ "modernc.org/sqlite"
)

const fileName = "session.sqlite"

type Op int

const (
	OpSet Op = iota + 1
	OpRemove
	OpClear
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes a storage mutation. External is set when the change was
// made by another process and picked up by Poll.
type Change struct {
	Op       Op
	Key      string
	External bool
}

// Store is the persistent key/value "local storage" shared by every teamboard
// process of a user. Subscribers are told about every mutation, including
// Clear, so no caller needs to intercept storage writes.
type Store struct {
	path string
	db   *sql.DB
	log  *slog.Logger

	mu      sync.Mutex
	subs    map[int]func(Change)
	nextSub int
	seq     int64
	known   map[string]bool
}

func Open(ctx context.Context, dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fileName)
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per-connection; a single connection keeps them in effect.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		path: path,
		db:   db,
		log:  logging.OrDiscard(logger),
		subs: map[int]func(Change){},
	}
	if s.seq, err = s.readSeq(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.known, err = s.keys(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS local_storage (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS storage_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO storage_meta(k, v) VALUES('change_seq', '0');`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM local_storage WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO local_storage(k, v, updated_at_unixms) VALUES(?, ?, ?)`,
			key, value, time.Now().UTC().UnixMilli())
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.known[key] = true
	s.mu.Unlock()
	s.notify(Change{Op: OpSet, Key: key})
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM local_storage WHERE k = ?`, key)
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.known, key)
	s.mu.Unlock()
	s.notify(Change{Op: OpRemove, Key: key})
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM local_storage`)
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.known = map[string]bool{}
	s.mu.Unlock()
	s.notify(Change{Op: OpClear})
	return nil
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Poll detects writes made by other processes since the last observation and
// reports keys that disappeared as external removals. It returns whether
// anything changed.
func (s *Store) Poll(ctx context.Context) (bool, error) {
	seq, err := s.readSeq(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	if seq == s.seq {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	now, err := s.keys(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	var removed []string
	for k := range s.known {
		if !now[k] {
			removed = append(removed, k)
		}
	}
	s.known = now
	s.seq = seq
	s.mu.Unlock()

	sort.Strings(removed)
	for _, k := range removed {
		s.notify(Change{Op: OpRemove, Key: k, External: true})
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE storage_meta SET v = CAST(v AS INTEGER) + 1 WHERE k = 'change_seq'`); err != nil {
		return err
	}
	var v string
	if err := tx.QueryRowContext(ctx, `SELECT v FROM storage_meta WHERE k = 'change_seq'`).Scan(&v); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	seq, _ := strconv.ParseInt(v, 10, 64)
	s.mu.Lock()
	// Only advance past our own write; an interleaved external write leaves the
	// gap for Poll to diff.
	if seq == s.seq+1 {
		s.seq = seq
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) readSeq(ctx context.Context) (int64, error) {
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT v FROM storage_meta WHERE k = 'change_seq'`).Scan(&v); err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *Store) keys(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT k FROM local_storage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, rows.Err()
}

func (s *Store) notify(ch Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
	s.log.Debug("session storage changed", "op", ch.Op.String(), "key", ch.Key, "external", ch.External)
}
