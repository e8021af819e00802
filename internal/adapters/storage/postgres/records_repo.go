package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"eeg-data-sharing/internal/domain/records"

	"github.com/jackc/pgx/v5/pgtype"
)

const recordColumns = `
	id, owner_user_id,
	filename, format, size_bytes, uploaded_at,
	is_shared, shared_with_user_ids, last_shared_at`

type RecordsRepo struct {
	db    *sql.DB
	types *pgtype.Map
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db, types: pgtype.NewMap()}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	shared := rec.SharedWithUserIDs
	if shared == nil {
		shared = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO eeg_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rec.ID,
		rec.OwnerUserID,
		rec.Filename,
		rec.Format,
		rec.SizeBytes,
		rec.UploadedAt,
		rec.IsShared,
		shared,
		toNullTime(rec.LastSharedAt),
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM eeg_records WHERE id = $1`, id)
	rec, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.Record{}, records.ErrNotFound
		}
		return records.Record{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) ListAll(ctx context.Context) ([]records.Record, error) {
	return r.query(ctx, `ORDER BY uploaded_at DESC`)
}

func (r *RecordsRepo) ListByOwners(ctx context.Context, ownerUserIDs []string) ([]records.Record, error) {
	if len(ownerUserIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, `WHERE owner_user_id = ANY($1) ORDER BY uploaded_at DESC`, ownerUserIDs)
}

func (r *RecordsRepo) ListByIDs(ctx context.Context, ids []string) ([]records.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `WHERE id = ANY($1) ORDER BY uploaded_at DESC`, ids)
}

func (r *RecordsRepo) AddSharedUser(ctx context.Context, recordID, userID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE eeg_records
		SET
			shared_with_user_ids = CASE
				WHEN $2::text = ANY(shared_with_user_ids) THEN shared_with_user_ids
				ELSE array_append(shared_with_user_ids, $2::text)
			END,
			is_shared = true,
			last_shared_at = $3
		WHERE id = $1
	`, recordID, userID, at)
}

func (r *RecordsRepo) RemoveSharedUser(ctx context.Context, recordID, userID string) error {
	return r.exec(ctx, `
		UPDATE eeg_records
		SET
			shared_with_user_ids = array_remove(shared_with_user_ids, $2::text),
			is_shared = cardinality(array_remove(shared_with_user_ids, $2::text)) > 0
		WHERE id = $1
	`, recordID, userID)
}

func (r *RecordsRepo) SetSharedFlag(ctx context.Context, recordID string, shared bool) error {
	return r.exec(ctx, `UPDATE eeg_records SET is_shared = $2 WHERE id = $1`, recordID, shared)
}

func (r *RecordsRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (r *RecordsRepo) query(ctx context.Context, tail string, args ...any) ([]records.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM eeg_records `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordsRepo) scan(s scanner) (records.Record, error) {
	var (
		rec          records.Record
		sharedWith   []string
		lastSharedAt sql.NullTime
	)
	if err := s.Scan(
		&rec.ID,
		&rec.OwnerUserID,
		&rec.Filename,
		&rec.Format,
		&rec.SizeBytes,
		&rec.UploadedAt,
		&rec.IsShared,
		r.types.SQLScanner(&sharedWith),
		&lastSharedAt,
	); err != nil {
		return records.Record{}, err
	}
	rec.SharedWithUserIDs = sharedWith
	rec.LastSharedAt = fromNullTime(lastSharedAt)
	return rec, nil
}
