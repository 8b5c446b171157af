package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/gomemkg/memkg/internal/metrics"
)

// Store owns the single libSQL handle for the process and implements every
// graph operation on top of it. Construct with NewStore, inject where needed,
// Close on shutdown.
type Store struct {
	config *Config
	db     *sql.DB

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt

	capMu sync.RWMutex
	caps  capFlags
}

// NewStore opens the configured database, creates the schema idempotently and
// probes optional capabilities. The returned Store is safe for concurrent use
// but serializes access through one connection.
func NewStore(config *Config) (*Store, error) {
	if config.EmbeddingDims <= 0 || config.EmbeddingDims > 65536 {
		return nil, fmt.Errorf("%w: embedding dims must be between 1 and 65536, got %d", ErrInvalidArgument, config.EmbeddingDims)
	}

	db, err := openDB(config)
	if err != nil {
		return nil, err
	}

	s := &Store{
		config:    config,
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database at %s: %w", config.URL, err)
	}

	// One logical client issuing sequential requests: a single connection,
	// kept alive so in-memory databases survive between operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s.detectCapabilities(context.Background())
	return s, nil
}

func openDB(config *Config) (*sql.DB, error) {
	dbURL := config.URL
	if !strings.HasPrefix(dbURL, "file:") && config.AuthToken != "" {
		if u, err := url.Parse(dbURL); err == nil {
			q := u.Query()
			q.Set("authToken", config.AuthToken)
			u.RawQuery = q.Encode()
			dbURL = u.String()
		} else if strings.Contains(dbURL, "?") {
			dbURL += "&authToken=" + url.QueryEscape(config.AuthToken)
		} else {
			dbURL += "?authToken=" + url.QueryEscape(config.AuthToken)
		}
	}

	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.URL, err)
	}
	return db, nil
}

// initialize creates tables and indexes if they don't exist.
func (s *Store) initialize() error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schemaStatements(s.config.EmbeddingDims) {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// Config returns the active configuration.
func (s *Store) Config() *Config {
	return s.config
}

// Close releases the database handle. In-flight transactions finish or roll
// back before the pool drains; nothing partially commits.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	for _, stmt := range s.stmtCache {
		stmt.Close()
	}
	s.stmtCache = make(map[string]*sql.Stmt)
	s.stmtMu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
