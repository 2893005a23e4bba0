package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fastpayment/internal/auth"
	"fastpayment/internal/clock"
	"fastpayment/internal/config"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/external"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory stand-in for the repositories. A single mutex
// plays the role of the row lock taken by the conditional decrement.
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	schedules     map[int64]*models.Schedule
	events        map[int64]*models.Event
	units         map[int64]bool
	types         map[int64]bool
	persons       map[string]*models.Person
	otps          []*models.OTPCode
	registrations []*models.Registration
	transactions  []*models.Transaction
	payments      []*models.Payment
	history       []models.HistoryLog
	sweepErr      error
	reconcileErr  error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    100,
		schedules: map[int64]*models.Schedule{},
		events:    map[int64]*models.Event{},
		units:     map[int64]bool{},
		types:     map[int64]bool{},
		persons:   map[string]*models.Person{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// seed adds an event priced at price and a schedule with the given vacancies.
func (m *memStore) seed(scheduleID int64, vacancies int, at time.Time, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[1] = &models.Event{ID: 1, Name: "Yoga", Slug: "yoga", PriceCents: price}
	m.units[1] = true
	m.types[1] = true
	status := models.ScheduleAvailable
	if vacancies == 0 {
		status = models.ScheduleUnavailable
	}
	m.schedules[scheduleID] = &models.Schedule{
		ID: scheduleID, EventID: 1, UnitID: 1, EventTypeID: 1,
		ScheduledAt: at, Vacancies: vacancies, Status: status,
	}
}

func (m *memStore) addPerson(email string) *models.Person {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(email, "", "")
}

func (m *memStore) upsertLocked(email, name, phone string) *models.Person {
	email = strings.ToLower(strings.TrimSpace(email))
	if p, ok := m.persons[email]; ok {
		if p.FullName == "" {
			p.FullName = name
		}
		return p
	}
	p := &models.Person{ID: m.id(), Email: email, FullName: name, Role: models.RoleClient, Status: models.PersonActive}
	m.persons[email] = p
	return p
}

func (m *memStore) personByID(id int64) *models.Person {
	for _, p := range m.persons {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memStore) schedule(id int64) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *memStore) registrationCount(scheduleID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.registrations {
		if r.ScheduleID == scheduleID {
			n++
		}
	}
	return n
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, h := range m.history {
		out = append(out, h.Action)
	}
	return out
}

// ScheduleStore

func (m *memStore) Sweep(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	var n int64
	for _, s := range m.schedules {
		if s.Status == models.ScheduleAvailable && !s.ScheduledAt.After(now) {
			s.Status = models.ScheduleUnavailable
			n++
		}
	}
	return n, nil
}

func (m *memStore) views(filter func(*models.Schedule) bool) []models.ScheduleView {
	var out []models.ScheduleView
	for _, s := range m.schedules {
		if !filter(s) {
			continue
		}
		e := m.events[s.EventID]
		out = append(out, models.ScheduleView{
			ID: s.ID, EventName: e.Name, EventSlug: e.Slug, PriceCents: e.PriceCents,
			ScheduledAt: s.ScheduledAt, Vacancies: s.Vacancies, Status: s.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListAvailable(_ context.Context, slug, _ string) ([]models.ScheduleView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slug = strings.ToLower(strings.TrimSpace(slug))
	return m.views(func(s *models.Schedule) bool {
		return s.Status == models.ScheduleAvailable && s.Vacancies > 0 &&
			(slug == "" || m.events[s.EventID].Slug == slug)
	}), nil
}

func (m *memStore) ListAll(_ context.Context) ([]models.ScheduleView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views(func(*models.Schedule) bool { return true }), nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, s *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return apperr.NotFound("schedule")
	}
	for _, r := range m.registrations {
		if r.ScheduleID == id {
			return apperr.Conflict("schedule has registrations")
		}
	}
	delete(m.schedules, id)
	return nil
}

func (m *memStore) SetVacancies(_ context.Context, id int64, vacancies int, reopen bool, reopenAfter, now time.Time) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, apperr.NotFound("schedule")
	}
	s.Vacancies = vacancies
	switch {
	case vacancies == 0:
		s.Status = models.ScheduleUnavailable
	case reopen && s.Status == models.ScheduleUnavailable && s.ScheduledAt.After(reopenAfter):
		s.Status = models.ScheduleAvailable
	}
	s.UpdatedAt = now
	cp := *s
	return &cp, nil
}

// CatalogStore

func (m *memStore) CreateUnit(_ context.Context, u *models.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	m.units[u.ID] = true
	return nil
}

func (m *memStore) ListUnits(context.Context) ([]models.Unit, error) { return nil, nil }

func (m *memStore) CreateEventType(_ context.Context, et *models.EventType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	et.ID = m.id()
	m.types[et.ID] = true
	return nil
}

func (m *memStore) ListEventTypes(context.Context) ([]models.EventType, error) { return nil, nil }

func (m *memStore) CreateEvent(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.Slug == strings.ToLower(e.Slug) {
			return apperr.Conflict("event slug already exists")
		}
	}
	e.ID = m.id()
	cp := *e
	cp.Slug = strings.ToLower(cp.Slug)
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) ListEvents(context.Context) ([]models.Event, error) { return nil, nil }

func (m *memStore) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) MissingReferences(_ context.Context, eventID, unitID, typeID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []string
	if _, ok := m.events[eventID]; !ok {
		missing = append(missing, "event")
	}
	if !m.units[unitID] {
		missing = append(missing, "unit")
	}
	if !m.types[typeID] {
		missing = append(missing, "event type")
	}
	return missing, nil
}

func (m *memStore) DeleteUnit(_ context.Context, id int64) error {
	return m.deleteCatalog("unit",
		func() bool { return m.units[id] },
		func(s *models.Schedule) bool { return s.UnitID == id },
		func() { delete(m.units, id) })
}

func (m *memStore) DeleteEventType(_ context.Context, id int64) error {
	return m.deleteCatalog("event type",
		func() bool { return m.types[id] },
		func(s *models.Schedule) bool { return s.EventTypeID == id },
		func() { delete(m.types, id) })
}

func (m *memStore) DeleteEvent(_ context.Context, id int64) error {
	return m.deleteCatalog("event",
		func() bool { _, ok := m.events[id]; return ok },
		func(s *models.Schedule) bool { return s.EventID == id },
		func() { delete(m.events, id) })
}

func (m *memStore) deleteCatalog(what string, exists func() bool, uses func(*models.Schedule) bool, remove func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !exists() {
		return apperr.NotFound(what)
	}
	for _, s := range m.schedules {
		if uses(s) {
			return apperr.Conflict(what + " is used by schedules")
		}
	}
	remove()
	return nil
}

// PersonStore

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Upsert(_ context.Context, email, fullName, phone string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.upsertLocked(email, fullName, phone)
	return &cp, nil
}

func (m *memStore) UpdateFullName(_ context.Context, id int64, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.personByID(id)
	if p == nil {
		return sql.ErrNoRows
	}
	p.FullName = fullName
	return nil
}

func (m *memStore) HasApprovedTransaction(_ context.Context, personID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.PersonID == personID && t.Status == models.PaymentApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByRole(_ context.Context, role string) ([]models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Person{}
	for _, p := range m.persons {
		if role == "" || p.Role == role {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) UpsertAdmin(_ context.Context, email, fullName, passwordHash string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.upsertLocked(email, fullName, "")
	p.Role = models.RoleAdmin
	p.Status = models.PersonActive
	p.PasswordHash = &passwordHash
	cp := *p
	return &cp, nil
}

func (m *memStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.personByID(id)
	if p == nil {
		return apperr.NotFound("person")
	}
	for _, r := range m.registrations {
		if r.PersonID == id {
			return apperr.Conflict("person has registrations")
		}
	}
	delete(m.persons, p.Email)
	return nil
}

// OTPStore

func (m *memStore) Replace(_ context.Context, otp *models.OTPCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.otps {
		if o.Email == otp.Email && o.Status == models.OTPPending {
			o.Status = models.OTPSuperseded
		}
	}
	otp.ID = m.id()
	cp := *otp
	m.otps = append(m.otps, &cp)
	return nil
}

func (m *memStore) Consume(_ context.Context, email, code string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.otps {
		if o.Email == email && o.Code == code && o.Status == models.OTPPending && o.ExpiresAt.After(now) {
			o.Status = models.OTPValidated
			o.ValidatedAt = &now
			return o.ID, nil
		}
	}
	return 0, apperr.ErrExpiredOrInvalid
}

func (m *memStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.otps {
		if o.Status == models.OTPPending && !o.ExpiresAt.After(now) {
			o.Status = models.OTPExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) pending(email string) []*models.OTPCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OTPCode
	for _, o := range m.otps {
		if o.Email == email && o.Status == models.OTPPending {
			out = append(out, o)
		}
	}
	return out
}

// SubscriptionStore

func (m *memStore) Complete(_ context.Context, in repository.CommitInput) (*repository.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.registrations {
		if r.PersonID == in.PersonID && r.ScheduleID == in.ScheduleID {
			cp := *r
			return &repository.CommitResult{Registration: &cp}, apperr.ErrAlreadyRegistered
		}
	}
	s, ok := m.schedules[in.ScheduleID]
	if !ok {
		return nil, apperr.NotFound("schedule")
	}
	if s.Vacancies <= 0 {
		return nil, apperr.ErrNoVacancy
	}
	person := m.personByID(in.PersonID)
	if person == nil {
		return nil, apperr.NotFound("person")
	}
	for _, r := range m.registrations {
		if r.PaymentID != nil && *r.PaymentID == in.PaymentID {
			return nil, apperr.Conflict("payment already used for another registration")
		}
	}

	s.Vacancies--
	if s.Vacancies == 0 {
		s.Status = models.ScheduleUnavailable
	}

	paymentID := in.PaymentID
	txn := &models.Transaction{
		ID: m.id(), PaymentID: &paymentID, PersonID: in.PersonID, ScheduleID: in.ScheduleID,
		PayerEmail: person.Email, AmountCents: m.events[s.EventID].PriceCents, Status: models.PaymentApproved,
		CreatedAt: in.Now,
	}
	m.transactions = append(m.transactions, txn)
	reg := &models.Registration{
		ID: m.id(), PersonID: in.PersonID, ScheduleID: in.ScheduleID, PaymentID: &paymentID,
		TransactionID: &txn.ID, Status: models.RegistrationConfirmed, CreatedAt: in.Now,
	}
	m.registrations = append(m.registrations, reg)
	entry := models.HistoryLog{ID: m.id(), TransactionID: &txn.ID, PaymentID: &paymentID, Action: models.ActionSubscriptionCompleted, CreatedAt: in.Now}
	m.history = append(m.history, entry)

	regCopy, txnCopy := *reg, *txn
	return &repository.CommitResult{Registration: &regCopy, Transaction: &txnCopy, History: &entry}, nil
}

func (m *memStore) GetRegistrationByPaymentID(_ context.Context, paymentID string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registrations {
		if r.PaymentID != nil && *r.PaymentID == paymentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// PaymentStore

func (m *memStore) CreatePending(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.Status = models.PaymentPending
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *memStore) Latest(_ context.Context, email string, scheduleID int64) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.payments) - 1; i >= 0; i-- {
		p := m.payments[i]
		if email != "" && p.PayerEmail != strings.ToLower(email) {
			continue
		}
		if scheduleID != 0 && (p.ScheduleID == nil || *p.ScheduleID != scheduleID) {
			continue
		}
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Reconcile(_ context.Context, in repository.ReconcileInput) (*repository.ReconcileOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconcileErr != nil {
		return nil, m.reconcileErr
	}

	var p *models.Payment
	for _, existing := range m.payments {
		if existing.ProviderPaymentID != nil && *existing.ProviderPaymentID == in.ProviderPaymentID {
			p = existing
		}
	}
	if p == nil {
		for i := len(m.payments) - 1; i >= 0; i-- {
			existing := m.payments[i]
			if existing.ProviderPaymentID == nil && existing.ExternalReference == in.ExternalReference {
				p = existing
				break
			}
		}
	}

	out := &repository.ReconcileOutcome{}
	providerID := in.ProviderPaymentID
	if p == nil {
		p = &models.Payment{ID: m.id(), ExternalReference: in.ExternalReference, Status: in.Status, PayerEmail: in.PayerEmail, AmountCents: in.AmountCents}
		if in.PersonID != nil && m.personByID(*in.PersonID) != nil {
			p.PersonID = in.PersonID
		}
		if in.ScheduleID != nil && m.schedules[*in.ScheduleID] != nil {
			p.ScheduleID = in.ScheduleID
		}
		m.payments = append(m.payments, p)
		out.Inserted = true
		out.Transitioned = in.Status != models.PaymentPending
		if p.PersonID == nil || p.ScheduleID == nil {
			entry := models.HistoryLog{ID: m.id(), PaymentID: &providerID, Action: models.ActionPaymentUnmatched, CreatedAt: in.Now}
			m.history = append(m.history, entry)
			out.History = append(out.History, entry)
		}
	} else if p.Status == models.PaymentPending && in.Status != models.PaymentPending {
		p.Status = in.Status
		out.Transitioned = true
	}
	p.ProviderPaymentID = &providerID
	p.ProviderStatus = in.ProviderStatus

	if out.Transitioned {
		action := models.ActionPaymentRejected
		if p.Status == models.PaymentApproved {
			action = models.ActionPaymentApproved
		}
		entry := models.HistoryLog{ID: m.id(), PaymentID: &providerID, Action: action, CreatedAt: in.Now}
		m.history = append(m.history, entry)
		out.History = append(out.History, entry)
	}

	cp := *p
	out.Payment = &cp
	return out, nil
}

// HistoryStore

func (m *memStore) Append(_ context.Context, entry *models.HistoryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]models.HistoryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.HistoryLog
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

// fakePublisher records published subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func (p *fakePublisher) last(subject string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.subjects) - 1; i >= 0; i-- {
		if p.subjects[i] == subject {
			return p.payloads[i]
		}
	}
	return nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

type fakeTokens struct {
	issued []auth.Principal
}

func (f *fakeTokens) Issue(p auth.Principal) (string, time.Time, error) {
	f.issued = append(f.issued, p)
	return fmt.Sprintf("token-%s-%d", p.Role, p.PersonID), baseTime.Add(time.Hour), nil
}

// fakeProvider serves provider payments from a map keyed by id.
type fakeProvider struct {
	mu          sync.Mutex
	payments    map[string]*external.ProviderPayment
	byReference map[string]*external.ProviderPayment
	err         error
	preferences []external.CheckoutRequest
	gets        int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		payments:    map[string]*external.ProviderPayment{},
		byReference: map[string]*external.ProviderPayment{},
	}
}

func (f *fakeProvider) put(id int64, status, reference string, amount float64, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pp := &external.ProviderPayment{ID: id, Status: status, ExternalReference: reference, TransactionAmount: amount, CurrencyID: "BRL"}
	pp.Payer.Email = email
	f.payments[pp.IDString()] = pp
	f.byReference[reference] = pp
}

func (f *fakeProvider) CreatePreference(_ context.Context, req external.CheckoutRequest) (*external.PreferenceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.preferences = append(f.preferences, req)
	return &external.PreferenceResponse{ID: "pref-1", InitPoint: "https://mp.test/checkout/pref-1"}, nil
}

func (f *fakeProvider) GetPayment(_ context.Context, id string) (*external.ProviderPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	pp, ok := f.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment")
	}
	cp := *pp
	return &cp, nil
}

func (f *fakeProvider) FindPaymentByReference(_ context.Context, ref string) (*external.ProviderPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pp, ok := f.byReference[ref]
	if !ok {
		return nil, nil
	}
	cp := *pp
	return &cp, nil
}

// fixture wires every service over one memStore.
type fixture struct {
	store     *memStore
	clock     *clock.Manual
	publisher *fakePublisher
	provider  *fakeProvider
	tokens    *fakeTokens
	limiter   *fakeLimiter

	schedules     *ScheduleService
	otp           *OTPService
	subscriptions *SubscriptionService
	payments      *PaymentService
	accounts      *AccountService
}

func newFixture() *fixture {
	f := &fixture{
		store:     newMemStore(),
		clock:     clock.NewManual(baseTime),
		publisher: &fakePublisher{},
		provider:  newFakeProvider(),
		tokens:    &fakeTokens{},
		limiter:   &fakeLimiter{allowed: true},
	}

	f.schedules = NewScheduleService(f.store, f.store, f.clock, config.SchedulePolicy{
		MinLeadTime:  time.Hour,
		ReopenMargin: time.Hour,
	})
	f.otp = NewOTPService(f.store, f.store, f.limiter, f.publisher, f.tokens, f.clock, config.OTPPolicy{
		TTL:        5 * time.Minute,
		RateLimit:  5,
		RateWindow: 15 * time.Minute,
	})
	f.subscriptions = NewSubscriptionService(f.store, f.publisher, f.clock)
	f.payments = NewPaymentService(PaymentDeps{
		Payments:      f.store,
		Schedules:     f.store,
		Catalog:       f.store,
		Persons:       f.store,
		Registrations: f.store,
		History:       f.store,
		Committer:     f.subscriptions,
		Provider:      f.provider,
		Publisher:     f.publisher,
		Clock:         f.clock,
		Currency:      "BRL",
	})
	f.accounts = NewAccountService(f.store, f.tokens)
	return f
}
