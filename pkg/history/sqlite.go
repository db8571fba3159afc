package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stratum-hq/strata/pkg/config"

	_ "modernc.org/sqlite"
)

// SQLiteConfig holds sqlite store settings.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns limits the connection pool size.
	MaxOpenConns int

	// MaxIdleConns limits idle pooled connections.
	MaxIdleConns int

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
}

// ApplyDefaults fills in zero-valued fields.
func (c *SQLiteConfig) ApplyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 5
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

// SQLiteStore persists run records in a sqlite database.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger

	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	pruneStmt  *sql.Stmt
}

// NewStore builds the store selected by cfg.Backend.
func NewStore(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(SQLiteConfig{Path: cfg.Path})
	default:
		return nil, fmt.Errorf("unknown history backend: %s (valid: memory, sqlite)", cfg.Backend)
	}
}

// NewSQLiteStore opens (and initializes if needed) a sqlite-backed store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	cfg.ApplyDefaults()

	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite history store requires a database path")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, newStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: slog.Default().With("component", "history"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize sets pragmas, creates the schema, and prepares statements.
func (s *SQLiteStore) initialize() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return newStorageError("sqlite", "pragma", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError("sqlite", "create schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError("sqlite", "record schema version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return newStorageError("sqlite", "read schema version", err)
	}
	if version != SchemaVersion {
		return newStorageError("sqlite", "verify schema",
			fmt.Errorf("schema version mismatch: have %d, want %d", version, SchemaVersion))
	}

	if err := s.prepareStatements(); err != nil {
		return err
	}

	s.logger.Debug("sqlite history store initialized",
		"path", s.config.Path,
		"schema_version", version)
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	statements := map[string]**sql.Stmt{
		`INSERT INTO runs (id, policy_name, policy_version, stage, dry_run, success,
			adapters, errors, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`: &s.insertStmt,
		`SELECT id, policy_name, policy_version, stage, dry_run, success,
			adapters, errors, started_at, finished_at
			FROM runs WHERE id = ?`: &s.getStmt,
		`SELECT id, policy_name, policy_version, stage, dry_run, success,
			adapters, errors, started_at, finished_at
			FROM runs ORDER BY started_at DESC LIMIT ?`: &s.listStmt,
		`DELETE FROM runs WHERE started_at < ?`: &s.pruneStmt,
	}
	for query, target := range statements {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return newStorageError("sqlite", "prepare statement", err)
		}
		*target = stmt
	}
	return nil
}

// Save persists one record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	adaptersJSON, err := json.Marshal(record.Adapters)
	if err != nil {
		return newStorageError("sqlite", "encode adapters", err)
	}
	errorsJSON, err := json.Marshal(record.Errors)
	if err != nil {
		return newStorageError("sqlite", "encode errors", err)
	}

	_, err = s.insertStmt.ExecContext(ctx,
		record.ID,
		record.PolicyName,
		record.PolicyVersion,
		record.Stage,
		record.DryRun,
		record.Success,
		string(adaptersJSON),
		string(errorsJSON),
		record.StartedAt.UnixNano(),
		record.FinishedAt.UnixNano(),
	)
	if err != nil {
		return newStorageError("sqlite", "save", err)
	}
	return nil
}

// List returns records ordered newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		// sqlite treats a negative LIMIT as unlimited.
		limit = -1
	}

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, newStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("sqlite", "list", err)
	}
	return results, nil
}

// Get returns the record with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Prune deletes records started before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.pruneStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	return pruned, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.getStmt, s.listStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec           Record
		adaptersJSON  string
		errorsJSON    string
		startedNanos  int64
		finishedNanos int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.PolicyName,
		&rec.PolicyVersion,
		&rec.Stage,
		&rec.DryRun,
		&rec.Success,
		&adaptersJSON,
		&errorsJSON,
		&startedNanos,
		&finishedNanos,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, newStorageError("sqlite", "scan", err)
	}

	if err := json.Unmarshal([]byte(adaptersJSON), &rec.Adapters); err != nil {
		return nil, newStorageError("sqlite", "decode adapters", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
		return nil, newStorageError("sqlite", "decode errors", err)
	}

	rec.StartedAt = time.Unix(0, startedNanos).UTC()
	rec.FinishedAt = time.Unix(0, finishedNanos).UTC()
	return &rec, nil
}
