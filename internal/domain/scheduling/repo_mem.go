package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memRepo struct {
	mu    sync.RWMutex
	items []*Appointment
}

func NewMemRepo() Repository {
	return &memRepo{}
}

func cloneAppointment(a *Appointment) *Appointment {
	cp := *a
	return &cp
}

// sortBySlot keeps the listing in visit order, soonest first. Date and time
// strings in the fixed layouts sort the same lexically and chronologically.
func (r *memRepo) sortBySlot() {
	sort.SliceStable(r.items, func(i, j int) bool {
		if r.items[i].Date != r.items[j].Date {
			return r.items[i].Date < r.items[j].Date
		}
		return r.items[i].Time < r.items[j].Time
	})
}

func (r *memRepo) find(id string) (int, *Appointment) {
	for i, a := range r.items {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, a := r.find(id); a != nil {
		return cloneAppointment(a), nil
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.items)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]*Appointment, 0, end-offset)
	for _, a := range r.items[offset:end] {
		items = append(items, cloneAppointment(a))
	}
	return items, total, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []*Appointment{}
	for _, a := range r.items {
		if a.PatientID == patientID {
			items = append(items, cloneAppointment(a))
		}
	}
	return items, nil
}

func (r *memRepo) Create(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := cloneAppointment(a)
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now

	r.items = append(r.items, cp)
	r.sortBySlot()
	return cloneAppointment(cp), nil
}

func (r *memRepo) Update(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, existing := r.find(a.ID)
	if existing == nil {
		return nil, ErrNotFound
	}

	cp := cloneAppointment(a)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	r.items[i] = cp
	r.sortBySlot()
	return cloneAppointment(cp), nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, existing := r.find(id)
	if existing == nil {
		return ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *memRepo) CountOnDate(_ context.Context, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, a := range r.items {
		if a.Date == date {
			count++
		}
	}
	return count, nil
}
