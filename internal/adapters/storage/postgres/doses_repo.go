package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"suppletrack/internal/domain/doses"
)

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

// slotRecord es la forma jsonb del schedule en la columna `schedule`.
type slotRecord struct {
	Time     string `json:"time"`
	Weekdays []int  `json:"weekdays"`
	EndDate  string `json:"end_date,omitempty"`
}

func encodeSchedule(slots []doses.Slot) ([]byte, error) {
	recs := make([]slotRecord, 0, len(slots))
	for _, s := range slots {
		wds := make([]int, 0, len(s.Weekdays))
		for _, w := range s.Weekdays {
			wds = append(wds, int(w))
		}
		recs = append(recs, slotRecord{
			Time:     s.Time.String(),
			Weekdays: wds,
			EndDate:  s.EndDate,
		})
	}
	return json.Marshal(recs)
}

func decodeSchedule(raw []byte) ([]doses.Slot, error) {
	var recs []slotRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	out := make([]doses.Slot, 0, len(recs))
	for _, rec := range recs {
		t, err := doses.ParseTimeOfDay(rec.Time)
		if err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		wds := make([]time.Weekday, 0, len(rec.Weekdays))
		for _, w := range rec.Weekdays {
			wds = append(wds, time.Weekday(w))
		}
		out = append(out, doses.Slot{Time: t, Weekdays: wds, EndDate: rec.EndDate})
	}
	return out, nil
}

func (r *DosesRepo) Create(ctx context.Context, d doses.Dose) error {
	schedule, err := encodeSchedule(d.Schedule)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO doses (
			id, owner_user_id,
			name, dosage_text, kind,
			icon, color, note,
			schedule,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		d.ID,
		d.OwnerUserID,
		d.Name,
		d.DosageText,
		string(d.Kind),
		d.Icon,
		d.Color,
		d.Note,
		schedule,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

const doseColumns = `
	id, owner_user_id,
	name, dosage_text, kind,
	icon, color, note,
	schedule,
	created_at, updated_at
`

func scanDose(sc interface{ Scan(...any) error }) (doses.Dose, error) {
	var d doses.Dose
	var kind string
	var schedule []byte

	if err := sc.Scan(
		&d.ID,
		&d.OwnerUserID,
		&d.Name,
		&d.DosageText,
		&kind,
		&d.Icon,
		&d.Color,
		&d.Note,
		&schedule,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return doses.Dose{}, err
	}

	d.Kind = doses.Kind(kind)
	slots, err := decodeSchedule(schedule)
	if err != nil {
		return doses.Dose{}, err
	}
	d.Schedule = slots
	return d, nil
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.Dose{}, doses.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+doseColumns+` FROM doses WHERE id = $1`, id)

	d, err := scanDose(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return doses.Dose{}, doses.ErrNotFound
		}
		return doses.Dose{}, err
	}
	return d, nil
}

func (r *DosesRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE owner_user_id = $1
		ORDER BY created_at, id
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoses(rows)
}

func (r *DosesRepo) ListAll(ctx context.Context) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoses(rows)
}

func collectDoses(rows *sql.Rows) ([]doses.Dose, error) {
	out := make([]doses.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DosesRepo) Update(ctx context.Context, d doses.Dose) error {
	schedule, err := encodeSchedule(d.Schedule)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE doses
		SET name = $2, dosage_text = $3, kind = $4,
		    icon = $5, color = $6, note = $7,
		    schedule = $8, updated_at = $9
		WHERE id = $1
	`,
		d.ID,
		d.Name,
		d.DosageText,
		string(d.Kind),
		d.Icon,
		d.Color,
		d.Note,
		schedule,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return doses.ErrNotFound
	}
	return nil
}

func (r *DosesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM doses WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return doses.ErrNotFound
	}
	return nil
}
