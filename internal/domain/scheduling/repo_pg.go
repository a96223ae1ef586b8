package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepo struct{ pool *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

const appointmentCols = `id, patient_id, patient_name, visit_date, visit_time, visit_type,
	doctor, notes, crm_event_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.Date, &a.Time, &a.Type,
		&a.Doctor, &a.Notes, &a.CRMEventID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
}

func (r *pgRepo) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+appointmentCols+` FROM appointment
		ORDER BY visit_date, visit_time LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *pgRepo) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentCols+` FROM appointment
		WHERE patient_id = $1 ORDER BY visit_date, visit_time`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *pgRepo) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, patient_name, visit_date, visit_time,
			visit_type, doctor, notes, crm_event_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		cp.ID, cp.PatientID, cp.PatientName, cp.Date, cp.Time,
		cp.Type, cp.Doctor, cp.Notes, cp.CRMEventID).
		Scan(&cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &cp, nil
}

func (r *pgRepo) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	cp := *a
	err := r.pool.QueryRow(ctx, `
		UPDATE appointment SET patient_id=$2, patient_name=$3, visit_date=$4, visit_time=$5,
			visit_type=$6, doctor=$7, notes=$8, crm_event_id=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		cp.ID, cp.PatientID, cp.PatientName, cp.Date, cp.Time,
		cp.Type, cp.Doctor, cp.Notes, cp.CRMEventID).
		Scan(&cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment %s: %w", cp.ID, err)
	}
	return &cp, nil
}

func (r *pgRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) CountOnDate(ctx context.Context, date string) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE visit_date = $1`, date).Scan(&total)
	return total, err
}
