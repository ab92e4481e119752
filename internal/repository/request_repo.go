// Package repository persists the history of completed reimbursement
// requests.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/reimbursement-bot/pkg/database"
	"go.uber.org/zap"
)

// CompletedRequest is one finished reimbursement conversation: who filed
// it, the extracted receipt details and when it was handed to approval.
type CompletedRequest struct {
	ID          int64             `json:"id"`
	RequesterID string            `json:"requester_id"`
	Fields      map[string]string `json:"fields"`
	CompletedAt time.Time         `json:"completed_at"`
}

// RequestRepository handles completed request database operations
type RequestRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the completed_requests table and its index if they do
// not exist. Both statements go through one transaction so a crash cannot
// leave the table without its index.
func (r *RequestRepository) EnsureSchema() error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS completed_requests (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				requester_id TEXT NOT NULL,
				fields TEXT NOT NULL,
				completed_at DATETIME NOT NULL
			)`); err != nil {
			return fmt.Errorf("failed to create completed_requests table: %w", err)
		}
		if _, err := tx.Exec(`
			CREATE INDEX IF NOT EXISTS idx_completed_requests_requester
				ON completed_requests (requester_id)`); err != nil {
			return fmt.Errorf("failed to create completed_requests index: %w", err)
		}
		return nil
	})
}

// Create inserts a completed request record
func (r *RequestRepository) Create(req *CompletedRequest) error {
	fields, err := json.Marshal(req.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	if req.CompletedAt.IsZero() {
		req.CompletedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO completed_requests (requester_id, fields, completed_at) VALUES (?, ?, ?)`,
		req.RequesterID, string(fields), req.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create completed request", zap.Error(err))
		return fmt.Errorf("failed to create completed request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// List returns completed requests, newest first
func (r *RequestRepository) List(limit, offset int) ([]*CompletedRequest, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, requester_id, fields, completed_at
		 FROM completed_requests
		 ORDER BY completed_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		r.logger.Error("Failed to list completed requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list completed requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByRequester returns all completed requests filed by one requester
func (r *RequestRepository) ListByRequester(requesterID string) ([]*CompletedRequest, error) {
	rows, err := r.db.Query(
		`SELECT id, requester_id, fields, completed_at
		 FROM completed_requests
		 WHERE requester_id = ?
		 ORDER BY completed_at DESC, id DESC`,
		requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for requester: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func scanRequests(rows *sql.Rows) ([]*CompletedRequest, error) {
	var requests []*CompletedRequest
	for rows.Next() {
		var (
			req       CompletedRequest
			rawFields string
		)
		if err := rows.Scan(&req.ID, &req.RequesterID, &rawFields, &req.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed request: %w", err)
		}
		if err := json.Unmarshal([]byte(rawFields), &req.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}
