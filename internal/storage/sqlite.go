// Package storage persists calculation history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tracekit/carbontrace/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite. History is
// append-only; calculations are never updated or deleted.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance. Use ":memory:" for
// an ephemeral database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveCalculation appends one calculation with its inputs and results and
// returns the stored row.
func (s *SQLiteStorage) SaveCalculation(ctx context.Context, inputs, results json.RawMessage) (*model.Calculation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(inputs) == 0 || len(results) == 0 {
		return nil, fmt.Errorf("inputs and results cannot be empty")
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO calculations (created_at, inputs, results) VALUES (?, ?, ?)`,
		createdAt, string(inputs), string(results))
	if err != nil {
		return nil, fmt.Errorf("failed to save calculation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get calculation id: %w", err)
	}

	return &model.Calculation{
		ID:        id,
		CreatedAt: createdAt,
		Inputs:    inputs,
		Results:   results,
	}, nil
}

// ListCalculations returns stored calculations newest first.
func (s *SQLiteStorage) ListCalculations(ctx context.Context, limit, offset int) ([]model.Calculation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, inputs, results FROM calculations
		 ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calculations []model.Calculation
	for rows.Next() {
		calc, scanErr := scanCalculation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		calculations = append(calculations, *calc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculations: %w", err)
	}

	return calculations, nil
}

// GetCalculation returns one calculation by ID, or sql.ErrNoRows if absent.
func (s *SQLiteStorage) GetCalculation(ctx context.Context, id int64) (*model.Calculation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, inputs, results FROM calculations WHERE id = ?`, id)
	return scanCalculation(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (*model.Calculation, error) {
	var calc model.Calculation
	var inputs, results string

	if err := row.Scan(&calc.ID, &calc.CreatedAt, &inputs, &results); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan calculation: %w", err)
	}

	calc.Inputs = json.RawMessage(inputs)
	calc.Results = json.RawMessage(results)
	return &calc, nil
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}
