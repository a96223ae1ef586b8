package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepo struct{ pool *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

const patientCols = `id, name, date_of_birth, gender, blood_type, height_cm, weight_kg,
	contact_phone, contact_email, address, insurance_provider, insurance_number,
	emergency_contact, profile_image_url, qr_code, crm_contact_id, created_at, updated_at`

func (r *pgRepo) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.BloodType, &p.HeightCm, &p.WeightKg,
		&p.ContactPhone, &p.ContactEmail, &p.Address, &p.InsuranceProvider, &p.InsuranceNumber,
		&p.EmergencyContact, &p.ProfileImageURL, &p.QRCode, &p.CRMContactID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// loadRecords fills the patient's owned collections, newest-first.
func (r *pgRepo) loadRecords(ctx context.Context, p *Patient) error {
	p.MedicalRecords = []MedicalRecord{}
	p.VaccineRecords = []VaccineRecord{}
	p.Notes = []Note{}

	rows, err := r.pool.Query(ctx, `
		SELECT id, record_date, description, treatment, medication, physician, follow_up, image_url
		FROM medical_record WHERE patient_id = $1 ORDER BY seq DESC`, p.ID)
	if err != nil {
		return fmt.Errorf("load medical records: %w", err)
	}
	for rows.Next() {
		var rec MedicalRecord
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Description, &rec.Treatment,
			&rec.Medication, &rec.Physician, &rec.FollowUp, &rec.ImageURL); err != nil {
			rows.Close()
			return err
		}
		p.MedicalRecords = append(p.MedicalRecords, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, administered_date, vaccine_name, manufacturer, lot_number,
			expiration_date, administered_by, next_due_date
		FROM vaccine_record WHERE patient_id = $1 ORDER BY seq DESC`, p.ID)
	if err != nil {
		return fmt.Errorf("load vaccine records: %w", err)
	}
	for rows.Next() {
		var rec VaccineRecord
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.VaccineName, &rec.Manufacturer,
			&rec.LotNumber, &rec.ExpirationDate, &rec.AdministeredBy, &rec.NextDueDate); err != nil {
			rows.Close()
			return err
		}
		p.VaccineRecords = append(p.VaccineRecords, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, note_date, title, content, created_by, is_private
		FROM note WHERE patient_id = $1 ORDER BY seq DESC`, p.ID)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Date, &n.Title, &n.Content, &n.CreatedBy, &n.Private); err != nil {
			rows.Close()
			return err
		}
		p.Notes = append(p.Notes, n)
	}
	rows.Close()
	return rows.Err()
}

func (r *pgRepo) getBy(ctx context.Context, where string, arg interface{}) (*Patient, error) {
	p, err := r.scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadRecords(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *pgRepo) GetByQRCode(ctx context.Context, code string) (*Patient, error) {
	return r.getBy(ctx, `qr_code = $1`, code)
}

func (r *pgRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, p := range items {
		if err := r.loadRecords(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *pgRepo) ListByIDs(ctx context.Context, ids []string) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = ANY($1) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range items {
		if err := r.loadRecords(ctx, p); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *pgRepo) Upsert(ctx context.Context, p *Patient) (*Patient, error) {
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}

	// Retry on access-token collision; the token column is unique.
	for attempt := 0; attempt < 5; attempt++ {
		code := cp.QRCode
		if code == "" {
			code = NewAccessToken()
		}

		err := r.pool.QueryRow(ctx, `
			INSERT INTO patient (id, name, date_of_birth, gender, blood_type, height_cm, weight_kg,
				contact_phone, contact_email, address, insurance_provider, insurance_number,
				emergency_contact, profile_image_url, qr_code, crm_contact_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (id) DO UPDATE SET
				name=EXCLUDED.name, date_of_birth=EXCLUDED.date_of_birth, gender=EXCLUDED.gender,
				blood_type=EXCLUDED.blood_type, height_cm=EXCLUDED.height_cm, weight_kg=EXCLUDED.weight_kg,
				contact_phone=EXCLUDED.contact_phone, contact_email=EXCLUDED.contact_email,
				address=EXCLUDED.address, insurance_provider=EXCLUDED.insurance_provider,
				insurance_number=EXCLUDED.insurance_number, emergency_contact=EXCLUDED.emergency_contact,
				profile_image_url=EXCLUDED.profile_image_url, qr_code=EXCLUDED.qr_code,
				crm_contact_id=EXCLUDED.crm_contact_id, updated_at=NOW()
			RETURNING qr_code, created_at, updated_at`,
			cp.ID, cp.Name, cp.DateOfBirth, cp.Gender, cp.BloodType, cp.HeightCm, cp.WeightKg,
			cp.ContactPhone, cp.ContactEmail, cp.Address, cp.InsuranceProvider, cp.InsuranceNumber,
			cp.EmergencyContact, cp.ProfileImageURL, code, cp.CRMContactID).
			Scan(&cp.QRCode, &cp.CreatedAt, &cp.UpdatedAt)
		if err == nil {
			if err := r.loadRecords(ctx, &cp); err != nil {
				return nil, err
			}
			return &cp, nil
		}
		if !isUniqueViolation(err) || p.QRCode != "" {
			return nil, fmt.Errorf("upsert patient %s: %w", cp.ID, err)
		}
	}
	return nil, fmt.Errorf("upsert patient %s: could not allocate a unique access token", cp.ID)
}

func (r *pgRepo) patientExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *pgRepo) AddMedicalRecord(ctx context.Context, patientID string, rec MedicalRecord) (bool, error) {
	ok, err := r.patientExists(ctx, patientID)
	if err != nil || !ok {
		return false, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO medical_record (id, patient_id, record_date, description, treatment,
			medication, physician, follow_up, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, patientID, rec.Date, rec.Description, rec.Treatment,
		rec.Medication, rec.Physician, rec.FollowUp, rec.ImageURL)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *pgRepo) AddVaccineRecord(ctx context.Context, patientID string, rec VaccineRecord) (bool, error) {
	ok, err := r.patientExists(ctx, patientID)
	if err != nil || !ok {
		return false, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO vaccine_record (id, patient_id, administered_date, vaccine_name, manufacturer,
			lot_number, expiration_date, administered_by, next_due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, patientID, rec.Date, rec.VaccineName, rec.Manufacturer,
		rec.LotNumber, rec.ExpirationDate, rec.AdministeredBy, rec.NextDueDate)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *pgRepo) AddNote(ctx context.Context, patientID string, n Note) (bool, error) {
	ok, err := r.patientExists(ctx, patientID)
	if err != nil || !ok {
		return false, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO note (id, patient_id, note_date, title, content, created_by, is_private)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, patientID, n.Date, n.Title, n.Content, n.CreatedBy, n.Private)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *pgRepo) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total)
	return total, err
}

func (r *pgRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE created_at > $1`, since).Scan(&total)
	return total, err
}
