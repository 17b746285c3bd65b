package booking

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/repository"
)

// memStore is an in-memory stand-in for the engine's persistence views.
type memStore struct {
	types        map[string]*domain.BookingType
	mapping      map[string][]domain.Resource
	reservations []domain.Reservation
	filters      []repository.ReservationFilter
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{
		types:   map[string]*domain.BookingType{},
		mapping: map[string][]domain.Resource{},
	}
}

func (m *memStore) addType(id string, maxHours int, resources ...domain.Resource) {
	bt := &domain.BookingType{ID: id, Name: id, Active: true}
	if maxHours > 0 {
		bt.MaxDurationHours = &maxHours
	}
	m.types[id] = bt
	m.mapping[id] = resources
}

func (m *memStore) addReservation(r domain.Reservation) {
	if r.Status == "" {
		r.Status = domain.ReservationStatusUpcoming
	}
	if r.LockKey == "" && r.ResourceID != nil {
		r.LockKey = *r.ResourceID
	}
	m.reservations = append(m.reservations, r)
}

func (m *memStore) status(id string) domain.ReservationStatus {
	for _, r := range m.reservations {
		if r.ID == id {
			return r.Status
		}
	}
	return ""
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.BookingType, error) {
	bt, ok := m.types[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *bt
	return &cp, nil
}

func (m *memStore) ListForType(_ context.Context, bookingTypeID string) ([]domain.Resource, error) {
	return append([]domain.Resource(nil), m.mapping[bookingTypeID]...), nil
}

func (m *memStore) List(_ context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	m.filters = append(m.filters, f)
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Reservation
	for _, r := range m.reservations {
		if f.LockKey != nil && r.LockKey != *f.LockKey {
			continue
		}
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.ExcludeID != nil && r.ID == *f.ExcludeID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, r.Status) {
			continue
		}
		if f.OverlapFrom != nil && !r.EndTime.After(*f.OverlapFrom) {
			continue
		}
		if f.OverlapTo != nil && !r.StartTime.Before(*f.OverlapTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) LastCreatedAt(_ context.Context, userID string, excluded []domain.ReservationStatus) (*time.Time, error) {
	var last *time.Time
	for _, r := range m.reservations {
		if r.UserID != userID || hasStatus(excluded, r.Status) {
			continue
		}
		if last == nil || r.CreatedAt.After(*last) {
			t := r.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (m *memStore) ExpireEnded(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for i := range m.reservations {
		r := &m.reservations[i]
		if !r.Status.IsTerminal() && !r.EndTime.After(now) {
			r.Status = domain.ReservationStatusExpired
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) ActivateStarted(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for i := range m.reservations {
		r := &m.reservations[i]
		if r.Status == domain.ReservationStatusUpcoming && !r.StartTime.After(now) && r.EndTime.After(now) {
			r.Status = domain.ReservationStatusActive
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func hasStatus(list []domain.ReservationStatus, s domain.ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func online(id string) domain.Resource {
	return domain.Resource{ID: id, Name: id, Active: true, Status: domain.ResourceStatusOnline}
}

func strPtr(s string) *string { return &s }

// day is a fixed reference date all tests build their times from.
var day = time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
