package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"eeg-data-sharing/internal/domain/sharing"
)

const sharingColumns = `
	id, record_id, shared_by_user_id, shared_with_user_id,
	permission, message, status,
	requested_at, accepted_at, rejected_at, expires_at`

type SharingRepo struct {
	db *sql.DB
}

func NewSharingRepo(db *sql.DB) *SharingRepo {
	return &SharingRepo{db: db}
}

// Create depende del índice único parcial sobre pending para detectar duplicados.
func (r *SharingRepo) Create(ctx context.Context, req sharing.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sharing_requests (`+sharingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		req.ID,
		req.RecordID,
		req.SharedByUserID,
		req.SharedWithUserID,
		string(req.Permission),
		toNullString(req.Message),
		string(req.Status),
		req.RequestedAt,
		toNullTime(req.AcceptedAt),
		toNullTime(req.RejectedAt),
		toNullTime(req.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sharing.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SharingRepo) GetByID(ctx context.Context, id string) (sharing.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return sharing.Request{}, sharing.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+sharingColumns+` FROM sharing_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sharing.Request{}, sharing.ErrNotFound
		}
		return sharing.Request{}, err
	}
	return req, nil
}

// UpdateStatus es el CAS del ledger: solo escribe si el status sigue siendo expected.
func (r *SharingRepo) UpdateStatus(ctx context.Context, req sharing.Request, expected sharing.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sharing_requests
		SET
			status = $2,
			accepted_at = $3,
			rejected_at = $4
		WHERE id = $1 AND status = $5
	`,
		req.ID,
		string(req.Status),
		toNullTime(req.AcceptedAt),
		toNullTime(req.RejectedAt),
		string(expected),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sharing_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return sharing.ErrNotFound
	}
	return sharing.ErrInvalidState
}

func (r *SharingRepo) ListBySharedWith(ctx context.Context, userID string) ([]sharing.Request, error) {
	return r.query(ctx, `WHERE shared_with_user_id = $1 ORDER BY requested_at DESC`, userID)
}

func (r *SharingRepo) ListBySharedBy(ctx context.Context, userID string) ([]sharing.Request, error) {
	return r.query(ctx, `WHERE shared_by_user_id = $1 ORDER BY requested_at DESC`, userID)
}

func (r *SharingRepo) ListByRecord(ctx context.Context, recordID string) ([]sharing.Request, error) {
	return r.query(ctx, `WHERE record_id = $1 ORDER BY requested_at DESC`, recordID)
}

func (r *SharingRepo) ListAccepted(ctx context.Context, f sharing.AcceptedFilter) ([]sharing.Request, error) {
	return r.query(ctx, `
		WHERE status = 'accepted'
		  AND ($1 = '' OR record_id = $1)
		  AND ($2 = '' OR shared_with_user_id = $2)
	`, f.RecordID, f.SharedWithUserID)
}

func (r *SharingRepo) ListExpirable(ctx context.Context, now time.Time) ([]sharing.Request, error) {
	return r.query(ctx, `
		WHERE status IN ('pending', 'accepted')
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
		ORDER BY expires_at ASC
	`, now)
}

func (r *SharingRepo) query(ctx context.Context, where string, args ...any) ([]sharing.Request, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sharingColumns+` FROM sharing_requests `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sharing.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (sharing.Request, error) {
	var (
		req        sharing.Request
		permission string
		status     string
		message    sql.NullString
		acceptedAt sql.NullTime
		rejectedAt sql.NullTime
		expiresAt  sql.NullTime
	)
	if err := s.Scan(
		&req.ID,
		&req.RecordID,
		&req.SharedByUserID,
		&req.SharedWithUserID,
		&permission,
		&message,
		&status,
		&req.RequestedAt,
		&acceptedAt,
		&rejectedAt,
		&expiresAt,
	); err != nil {
		return sharing.Request{}, err
	}

	req.Permission = sharing.Permission(permission)
	req.Status = sharing.Status(status)
	if message.Valid {
		m := message.String
		req.Message = &m
	}
	req.AcceptedAt = fromNullTime(acceptedAt)
	req.RejectedAt = fromNullTime(rejectedAt)
	req.ExpiresAt = fromNullTime(expiresAt)
	return req, nil
}
