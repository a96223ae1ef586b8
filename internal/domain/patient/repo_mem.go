package patient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is the in-memory patient store. Patients are held in a slice so
// listing preserves insertion order, with new patients at the front. Guarded
// by a mutex because echo serves requests concurrently; the design is still
// single-writer per operation.
type memRepo struct {
	mu       sync.RWMutex
	patients []*Patient
}

func NewMemRepo() Repository {
	return &memRepo{}
}

func clonePatient(p *Patient) *Patient {
	cp := *p
	cp.MedicalRecords = append([]MedicalRecord(nil), p.MedicalRecords...)
	cp.VaccineRecords = append([]VaccineRecord(nil), p.VaccineRecords...)
	cp.Notes = append([]Note(nil), p.Notes...)
	return &cp
}

func (r *memRepo) find(id string) *Patient {
	for _, p := range r.patients {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.find(id); p != nil {
		return clonePatient(p), nil
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByQRCode(_ context.Context, code string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.QRCode == code {
			return clonePatient(p), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.patients)
	if offset >= total {
		return []*Patient{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]*Patient, 0, end-offset)
	for _, p := range r.patients[offset:end] {
		items = append(items, clonePatient(p))
	}
	return items, total, nil
}

func (r *memRepo) ListByIDs(_ context.Context, ids []string) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	items := make([]*Patient, 0, len(ids))
	for _, p := range r.patients {
		if want[p.ID] {
			items = append(items, clonePatient(p))
		}
	}
	return items, nil
}

func (r *memRepo) qrCodeTaken(code string) bool {
	for _, p := range r.patients {
		if p.QRCode == code {
			return true
		}
	}
	return false
}

func (r *memRepo) Upsert(_ context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := clonePatient(p)
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.QRCode == "" {
		code := NewAccessToken()
		for r.qrCodeTaken(code) {
			code = NewAccessToken()
		}
		cp.QRCode = code
	}
	if cp.MedicalRecords == nil {
		cp.MedicalRecords = []MedicalRecord{}
	}
	if cp.VaccineRecords == nil {
		cp.VaccineRecords = []VaccineRecord{}
	}
	if cp.Notes == nil {
		cp.Notes = []Note{}
	}

	now := time.Now()
	cp.UpdatedAt = now

	for i, existing := range r.patients {
		if existing.ID == cp.ID {
			cp.CreatedAt = existing.CreatedAt
			r.patients[i] = cp
			return clonePatient(cp), nil
		}
	}

	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	r.patients = append([]*Patient{cp}, r.patients...)
	return clonePatient(cp), nil
}

func (r *memRepo) AddMedicalRecord(_ context.Context, patientID string, rec MedicalRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.find(patientID)
	if p == nil {
		return false, nil
	}
	p.MedicalRecords = append([]MedicalRecord{rec}, p.MedicalRecords...)
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) AddVaccineRecord(_ context.Context, patientID string, rec VaccineRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.find(patientID)
	if p == nil {
		return false, nil
	}
	p.VaccineRecords = append([]VaccineRecord{rec}, p.VaccineRecords...)
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) AddNote(_ context.Context, patientID string, n Note) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.find(patientID)
	if p == nil {
		return false, nil
	}
	p.Notes = append([]Note{n}, p.Notes...)
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients), nil
}

func (r *memRepo) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, p := range r.patients {
		if p.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}
