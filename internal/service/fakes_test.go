package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/events"
	"github.com/spec-kit/labbook/internal/persistence"
	"github.com/spec-kit/labbook/internal/repository"
)

type fakeReservations struct {
	mu    sync.Mutex
	rows  []domain.Reservation
	now   func() time.Time
	calls int
	// beforeCreate may mutate state and fail the insert to simulate a race.
	beforeCreate func(call int, r *domain.Reservation) error
}

func (f *fakeReservations) Create(_ context.Context, r *domain.Reservation) error {
	f.mu.Lock()
	f.calls++
	call := f.calls
	hook := f.beforeCreate
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call, r); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = f.now()
	r.UpdatedAt = r.CreatedAt
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeReservations) insert(r domain.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Status == "" {
		r.Status = domain.ReservationStatusUpcoming
	}
	if r.LockKey == "" && r.ResourceID != nil {
		r.LockKey = *r.ResourceID
	}
	f.rows = append(f.rows, r)
}

func (f *fakeReservations) GetByID(_ context.Context, id string) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReservations) List(_ context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.rows {
		switch {
		case filter.UserID != nil && r.UserID != *filter.UserID,
			filter.BookingTypeID != nil && r.BookingTypeID != *filter.BookingTypeID,
			filter.LockKey != nil && r.LockKey != *filter.LockKey,
			filter.ExcludeID != nil && r.ID == *filter.ExcludeID,
			len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, r.Status),
			filter.OverlapFrom != nil && !r.EndTime.After(*filter.OverlapFrom),
			filter.OverlapTo != nil && !r.StartTime.Before(*filter.OverlapTo):
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReservations) TransitionStatus(_ context.Context, id string, status domain.ReservationStatus, from []domain.ReservationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			if !containsStatus(from, f.rows[i].Status) {
				return false, nil
			}
			f.rows[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservations) SetStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeReservations) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].PasswordHash = hash
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeReservations) LastCreatedAt(_ context.Context, userID string, excluded []domain.ReservationStatus) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *time.Time
	for _, r := range f.rows {
		if r.UserID != userID || containsStatus(excluded, r.Status) {
			continue
		}
		if last == nil || r.CreatedAt.After(*last) {
			t := r.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (f *fakeReservations) ExpireEnded(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for i := range f.rows {
		if !f.rows[i].Status.IsTerminal() && !f.rows[i].EndTime.After(now) {
			f.rows[i].Status = domain.ReservationStatusExpired
			ids = append(ids, f.rows[i].ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeReservations) ActivateStarted(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for i := range f.rows {
		r := &f.rows[i]
		if r.Status == domain.ReservationStatusUpcoming && !r.StartTime.After(now) && r.EndTime.After(now) {
			r.Status = domain.ReservationStatusActive
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func containsStatus(list []domain.ReservationStatus, s domain.ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeBookingTypes struct {
	types   map[string]*domain.BookingType
	mapping map[string][]string
	// Errors returned by the next Delete or AssignResource call.
	deleteErr error
	assignErr error
}

func newFakeBookingTypes() *fakeBookingTypes {
	return &fakeBookingTypes{types: map[string]*domain.BookingType{}, mapping: map[string][]string{}}
}

func (f *fakeBookingTypes) Create(_ context.Context, bt *domain.BookingType) error {
	if bt.ID == "" {
		bt.ID = uuid.NewString()
	}
	cp := *bt
	f.types[bt.ID] = &cp
	return nil
}

func (f *fakeBookingTypes) Update(_ context.Context, bt *domain.BookingType) error {
	if _, ok := f.types[bt.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *bt
	f.types[bt.ID] = &cp
	return nil
}

func (f *fakeBookingTypes) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.types[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.types, id)
	return nil
}

func (f *fakeBookingTypes) GetByID(_ context.Context, id string) (*domain.BookingType, error) {
	bt, ok := f.types[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *bt
	return &cp, nil
}

func (f *fakeBookingTypes) List(_ context.Context, activeOnly bool) ([]domain.BookingType, error) {
	var out []domain.BookingType
	for _, bt := range f.types {
		if activeOnly && !bt.Active {
			continue
		}
		out = append(out, *bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeBookingTypes) AssignResource(_ context.Context, bookingTypeID, resourceID string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	for _, id := range f.mapping[bookingTypeID] {
		if id == resourceID {
			return repository.ErrDuplicate
		}
	}
	f.mapping[bookingTypeID] = append(f.mapping[bookingTypeID], resourceID)
	return nil
}

func (f *fakeBookingTypes) UnassignResource(_ context.Context, bookingTypeID, resourceID string) error {
	ids := f.mapping[bookingTypeID]
	for i, id := range ids {
		if id == resourceID {
			f.mapping[bookingTypeID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeResources struct {
	byID  map[string]*domain.Resource
	types *fakeBookingTypes
	// deleteErr is returned by Delete when set.
	deleteErr error
}

func (f *fakeResources) Create(_ context.Context, r *domain.Resource) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResources) Update(_ context.Context, r *domain.Resource) error {
	if _, ok := f.byID[r.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResources) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeResources) GetByID(_ context.Context, id string) (*domain.Resource, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResources) List(_ context.Context) ([]domain.Resource, error) {
	out := make([]domain.Resource, 0, len(f.byID))
	for _, r := range f.byID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeResources) ListForType(_ context.Context, bookingTypeID string) ([]domain.Resource, error) {
	var out []domain.Resource
	for _, id := range f.types.mapping[bookingTypeID] {
		if r, ok := f.byID[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeConnections struct {
	byReservation map[string]*domain.ConnectionInfo
	createErr     error
}

func (f *fakeConnections) Create(_ context.Context, info *domain.ConnectionInfo) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byReservation[info.ReservationID]; ok {
		return repository.ErrDuplicate
	}
	info.ID = uuid.NewString()
	cp := *info
	f.byReservation[info.ReservationID] = &cp
	return nil
}

func (f *fakeConnections) GetByReservation(_ context.Context, reservationID string) (*domain.ConnectionInfo, error) {
	info, ok := f.byReservation[reservationID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *info
	return &cp, nil
}

type fakeTemplates struct {
	items []domain.ConnectionTemplate
}

func (f *fakeTemplates) Create(_ context.Context, t *domain.ConnectionTemplate) error {
	t.ID = uuid.NewString()
	f.items = append(f.items, *t)
	return nil
}

func (f *fakeTemplates) List(_ context.Context) ([]domain.ConnectionTemplate, error) {
	return append([]domain.ConnectionTemplate(nil), f.items...), nil
}

func (f *fakeTemplates) ActiveForBookingType(_ context.Context, bookingTypeID string) (*domain.ConnectionTemplate, error) {
	for i := len(f.items) - 1; i >= 0; i-- {
		t := f.items[i]
		if t.Active && t.BookingTypeID != nil && *t.BookingTypeID == bookingTypeID {
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeUsers struct {
	byID map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(_ context.Context, u *domain.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) CountByRole(_ context.Context, role domain.Role) (int, error) {
	n := 0
	for _, u := range f.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type fakeAudit struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	createErr error
}

func (f *fakeAudit) Create(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = uuid.NewString()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]domain.AuditEntry(nil), f.entries...)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// fakeLocker hands out leases unless err is set. Held keys are tracked so
// tests can assert release.
type fakeLocker struct {
	mu       sync.Mutex
	err      error
	held     map[string]bool
	acquired []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (persistence.Releaser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.held[key] {
		return nil, persistence.ErrLockHeld
	}
	f.held[key] = true
	f.acquired = append(f.acquired, key)
	return &fakeLease{locker: f, key: key}, nil
}

func (f *fakeLocker) isHeld(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[key]
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (l *fakeLease) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

// recorder collects every published event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(d events.Dispatcher) *recorder {
	r := &recorder{}
	events.SubscribeAll(d, func(_ context.Context, e events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	})
	return r
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
