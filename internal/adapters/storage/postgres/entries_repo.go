package postgres

import (
	"context"
	"database/sql"

	"suppletrack/internal/domain/adherence"
)

type EntriesRepo struct {
	db *sql.DB
}

func NewEntriesRepo(db *sql.DB) *EntriesRepo {
	return &EntriesRepo{db: db}
}

const entryColumns = `
	id, dose_id, owner_user_id,
	entry_date, slot,
	status, acted_at, reason
`

func (r *EntriesRepo) Insert(ctx context.Context, e adherence.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO adherence_entries (
			id, dose_id, owner_user_id,
			entry_date, slot,
			status, acted_at, reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		e.ID,
		e.DoseID,
		e.OwnerUserID,
		e.Date,
		e.Slot,
		string(e.Status),
		e.ActedAt,
		e.Reason,
	)
	return err
}

func (r *EntriesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM adherence_entries WHERE id = $1`, id)
	return err
}

func (r *EntriesRepo) FindKey(ctx context.Context, doseID, date, slot string) ([]adherence.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM adherence_entries
		WHERE dose_id = $1 AND entry_date = $2 AND slot = $3
		ORDER BY entry_date, slot, id
	`, doseID, date, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *EntriesRepo) ListByDate(ctx context.Context, ownerUserID, date string) ([]adherence.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM adherence_entries
		WHERE owner_user_id = $1 AND entry_date = $2
		ORDER BY entry_date, slot, id
	`, ownerUserID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *EntriesRepo) ListRange(ctx context.Context, ownerUserID, from, to string) ([]adherence.Entry, error) {
	// from/to incluidos; entry_date es texto YYYY-MM-DD, el rango
	// lexicográfico coincide con el cronológico.
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM adherence_entries
		WHERE owner_user_id = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date, slot, id
	`, ownerUserID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]adherence.Entry, error) {
	out := make([]adherence.Entry, 0)
	for rows.Next() {
		var e adherence.Entry
		var status string

		if err := rows.Scan(
			&e.ID,
			&e.DoseID,
			&e.OwnerUserID,
			&e.Date,
			&e.Slot,
			&status,
			&e.ActedAt,
			&e.Reason,
		); err != nil {
			return nil, err
		}

		e.Status = adherence.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
