// CLAUDE:SUMMARY CRUD for recorded selectors and their verification history, with EMA stability tracking.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/uniqsel/dbopen"
)

// stabilityAlpha is the EMA weight of the latest verification.
const stabilityAlpha = 0.1

// Record is a stored selector.
type Record struct {
	ID          string  `json:"id"`
	URL         string  `json:"url,omitempty"`
	Target      string  `json:"target,omitempty"` // query or "index:<n>" that located the node
	Scope       string  `json:"scope,omitempty"`  // host selectors joined by " >>> ", empty for the document
	Selector    string  `json:"selector"`
	Strategy    string  `json:"strategy"`
	Unique      bool    `json:"unique"`
	Score       float64 `json:"score"`
	Stability   float64 `json:"stability"` // EMA of successful verifications, 0..1
	Checks      int     `json:"checks"`
	Failures    int     `json:"failures"`
	LastOutcome string  `json:"last_outcome,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Verification is one re-evaluation of a stored selector.
type Verification struct {
	ID         string `json:"id"`
	SelectorID string `json:"selector_id"`
	Outcome    string `json:"outcome"` // unique | ambiguous | missing | invalid
	Matches    int    `json:"matches"`
	Message    string `json:"message,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

const recordColumns = `id, url, target, scope, selector, strategy, is_unique, score,
	stability, checks, failures, last_outcome, created_at, updated_at`

// InsertRecord inserts a new selector record. A unique record starts fully
// stable.
func (s *Store) InsertRecord(ctx context.Context, r *Record) error {
	now := time.Now().UnixMilli()
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Unique && r.Checks == 0 {
		r.Stability = 1.0
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO selectors (`+recordColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.URL, r.Target, r.Scope, r.Selector, r.Strategy, r.Unique, r.Score,
		r.Stability, r.Checks, r.Failures, r.LastOutcome, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert selector: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by ID. It returns nil, nil when absent.
func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM selectors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get selector: %w", err)
	}
	return r, nil
}

// ListRecords returns records, newest first, optionally for one URL.
func (s *Store) ListRecords(ctx context.Context, url string, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM selectors`
	var args []any
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list selectors: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan selector: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecord removes a record. Cascades to its verifications.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM selectors WHERE id = ?`, id)
	return err
}

// CountRecords returns the number of stored selectors.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM selectors`).Scan(&n)
	return n, err
}

// RecordVerification stores v and folds its outcome into the selector's
// stability: stability = stability*(1-α) + α when the selector still
// resolves uniquely, stability*(1-α) otherwise.
func (s *Store) RecordVerification(ctx context.Context, v *Verification) error {
	if v.CreatedAt == 0 {
		v.CreatedAt = time.Now().UnixMilli()
	}
	success, failure := 0.0, 1
	if v.Outcome == "unique" {
		success, failure = stabilityAlpha, 0
	}

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verifications (id, selector_id, outcome, matches, message, created_at)
			VALUES (?,?,?,?,?,?)`,
			v.ID, v.SelectorID, v.Outcome, v.Matches, v.Message, v.CreatedAt,
		); err != nil {
			return fmt.Errorf("store: insert verification: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE selectors SET
				stability = MIN(1.0, stability * ? + ?),
				checks = checks + 1,
				failures = failures + ?,
				last_outcome = ?,
				updated_at = ?
			WHERE id = ?`,
			1-stabilityAlpha, success, failure, v.Outcome, v.CreatedAt, v.SelectorID,
		)
		if err != nil {
			return fmt.Errorf("store: update stability: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("store: selector %s not found", v.SelectorID)
		}
		return nil
	})
}

// ListVerifications returns the most recent verifications of a selector.
func (s *Store) ListVerifications(ctx context.Context, selectorID string, limit int) ([]*Verification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, selector_id, outcome, matches, message, created_at
		FROM verifications WHERE selector_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, selectorID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list verifications: %w", err)
	}
	defer rows.Close()

	var out []*Verification
	for rows.Next() {
		v := &Verification{}
		if err := rows.Scan(&v.ID, &v.SelectorID, &v.Outcome, &v.Matches, &v.Message, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan verification: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	r := &Record{}
	err := row.Scan(
		&r.ID, &r.URL, &r.Target, &r.Scope, &r.Selector, &r.Strategy, &r.Unique, &r.Score,
		&r.Stability, &r.Checks, &r.Failures, &r.LastOutcome, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}
