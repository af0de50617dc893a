// Package sqlite records oracle requests in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

const defaultListLimit = 50

type Journal struct {
	db *sql.DB
}

var _ ports.RequestJournal = (*Journal)(nil)

// Open opens (and migrates) the journal at dsn. A plain file path is created
// with owner-only permissions on its directory.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		return nil, errors.New("journal path is empty")
	}

	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !memory && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Every connection to :memory: is its own database.
	if memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	journal := &Journal{db: db}
	if err := journal.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return journal, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL DEFAULT '',
			model_id TEXT,
			fee_wei TEXT,
			status TEXT NOT NULL,
			request_id TEXT,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_session ON requests(session_id, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := j.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Record(ctx context.Context, record domain.TransactionRecord) error {
	if record.ID == "" {
		return errors.New("journal record id is required")
	}
	if record.Status == "" {
		record.Status = domain.TxStatusPending
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO requests (id, tx_hash, session_id, model_id, fee_wei, status, request_id, result, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TxHash.Hex(),
		record.SessionID,
		nullBig(record.ModelID),
		nullBig(record.FeeAmount),
		string(record.Status),
		nullBig(record.RequestID),
		record.Result,
		record.Error,
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

func (j *Journal) Update(ctx context.Context, record domain.TransactionRecord) error {
	result, err := j.db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, request_id = ?, result = ?, error = ?, updated_at = ?
		WHERE tx_hash = ?`,
		string(record.Status),
		nullBig(record.RequestID),
		record.Result,
		record.Error,
		formatTime(record.UpdatedAt),
		record.TxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("update journal record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update journal record: %w", err)
	}
	if affected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (j *Journal) GetByTxHash(ctx context.Context, hash common.Hash) (domain.TransactionRecord, error) {
	row := j.db.QueryRowContext(ctx, selectColumns+` WHERE tx_hash = ?`, hash.Hex())

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TransactionRecord{}, domain.ErrRequestNotFound
	}
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("get journal record: %w", err)
	}
	return record, nil
}

// List returns the newest records first.
func (j *Journal) List(ctx context.Context, limit int) ([]domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := j.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}

	return records, nil
}

const selectColumns = `SELECT id, tx_hash, session_id, model_id, fee_wei, status, request_id, result, error, created_at, updated_at FROM requests`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.TransactionRecord, error) {
	var (
		record                  domain.TransactionRecord
		txHash, status          string
		modelID, fee, requestID sql.NullString
		createdAt, updatedAt    string
	)

	if err := row.Scan(&record.ID, &txHash, &record.SessionID, &modelID, &fee, &status, &requestID, &record.Result, &record.Error, &createdAt, &updatedAt); err != nil {
		return domain.TransactionRecord{}, err
	}

	record.TxHash = common.HexToHash(txHash)
	record.Status = domain.TxStatus(status)
	record.ModelID = parseBig(modelID)
	record.FeeAmount = parseBig(fee)
	record.RequestID = parseBig(requestID)
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)

	return record, nil
}

func nullBig(value *big.Int) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.String(), Valid: true}
}

func parseBig(value sql.NullString) *big.Int {
	if !value.Valid || value.String == "" {
		return nil
	}
	parsed, ok := new(big.Int).SetString(value.String, 10)
	if !ok {
		return nil
	}
	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
