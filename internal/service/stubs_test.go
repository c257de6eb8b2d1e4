package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/internal/repository"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type personStoreStub struct {
	mu        sync.Mutex
	persons   map[string]*models.Person
	conflicts int
	updates   int
	findErr   error
}

func newPersonStoreStub(persons ...models.Person) *personStoreStub {
	s := &personStoreStub{persons: map[string]*models.Person{}}
	for i := range persons {
		p := persons[i]
		if p.LifecycleStage == "" {
			p.LifecycleStage = models.LifecycleStageNew
		}
		if p.Version == 0 {
			p.Version = 1
		}
		s.persons[p.ID] = &p
	}
	return s
}

func (s *personStoreStub) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Person
	for _, p := range s.persons {
		if filter.Stage != "" && p.LifecycleStage != filter.Stage {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *personStoreStub) FindByID(ctx context.Context, id string) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.persons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s *personStoreStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.persons {
		if p.Email == email && p.ArchivedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *personStoreStub) Create(ctx context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	person.Version = 1
	cp := *person
	s.persons[person.ID] = &cp
	return nil
}

func (s *personStoreStub) MarkDossierSent(ctx context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.DossierSentAt = &sentAt
	p.Version++
	return nil
}

func (s *personStoreStub) Archive(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok || p.ArchivedAt != nil {
		return sql.ErrNoRows
	}
	p.ArchivedAt = &at
	return nil
}

// UpdateLifecycleStage fails with a version conflict while conflicts remain, bumping the
// stored version to mimic a concurrent writer.
func (s *personStoreStub) UpdateLifecycleStage(ctx context.Context, id string, stage models.LifecycleStage, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return repository.ErrVersionConflict
	}
	if s.conflicts > 0 {
		s.conflicts--
		p.Version++
		return repository.ErrVersionConflict
	}
	if p.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	p.LifecycleStage = stage
	p.Version++
	s.updates++
	return nil
}

func (s *personStoreStub) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.persons {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *personStoreStub) CountByStage(ctx context.Context) ([]models.LifecycleStageCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[models.LifecycleStage]int{}
	for _, p := range s.persons {
		if p.ArchivedAt == nil {
			counts[p.LifecycleStage]++
		}
	}
	var out []models.LifecycleStageCount
	for stage, count := range counts {
		out = append(out, models.LifecycleStageCount{Stage: stage, Count: count})
	}
	return out, nil
}

// touch bumps the person version the way child writes do in the same transaction.
func (s *personStoreStub) touch(id string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Version++
	return nil
}

func (s *personStoreStub) version(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persons[id].Version
}

// hookPersonStore runs beforeWrite once, after classification and before the conditional write.
type hookPersonStore struct {
	*personStoreStub
	beforeWrite func()
}

func (s *hookPersonStore) UpdateLifecycleStage(ctx context.Context, id string, stage models.LifecycleStage, expectedVersion int64) error {
	if hook := s.beforeWrite; hook != nil {
		s.beforeWrite = nil
		hook()
	}
	return s.personStoreStub.UpdateLifecycleStage(ctx, id, stage, expectedVersion)
}

func (s *personStoreStub) stage(id string) models.LifecycleStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persons[id].LifecycleStage
}

type candidacyStoreStub struct {
	mu          sync.Mutex
	candidacies map[string]*models.Candidacy
	documents   *documentStoreStub
	persons     *personStoreStub
	order       []string
}

func newCandidacyStoreStub(documents *documentStoreStub, candidacies ...models.Candidacy) *candidacyStoreStub {
	s := &candidacyStoreStub{candidacies: map[string]*models.Candidacy{}, documents: documents}
	for i := range candidacies {
		c := candidacies[i]
		s.candidacies[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return s
}

func (s *candidacyStoreStub) FindByID(ctx context.Context, id string) (*models.Candidacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidacies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *candidacyStoreStub) ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error) {
	return s.List(ctx, models.CandidacyFilter{PersonID: personID})
}

func (s *candidacyStoreStub) List(ctx context.Context, filter models.CandidacyFilter) ([]models.Candidacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Candidacy
	for _, id := range s.order {
		c := s.candidacies[id]
		if filter.PersonID != "" && c.PersonID != filter.PersonID {
			continue
		}
		if filter.ProgramTier != "" && c.ProgramTier != filter.ProgramTier {
			continue
		}
		if filter.OpenOnly && c.Status.Terminal() {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *candidacyStoreStub) CreateWithPlaceholders(ctx context.Context, candidacy *models.Candidacy, placeholders []models.Document) error {
	s.mu.Lock()
	for _, c := range s.candidacies {
		if c.PersonID == candidacy.PersonID && !c.Status.Terminal() {
			s.mu.Unlock()
			return repository.ErrOpenCandidacyExists
		}
	}
	if err := s.persons.touch(candidacy.PersonID); err != nil {
		s.mu.Unlock()
		return err
	}
	if candidacy.ID == "" {
		candidacy.ID = uuid.NewString()
	}
	cp := *candidacy
	s.candidacies[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	s.mu.Unlock()
	for i := range placeholders {
		placeholders[i].CandidacyID = candidacy.ID
		if err := s.documents.Create(ctx, &placeholders[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *candidacyStoreStub) UpdateStatus(ctx context.Context, id string, from, to models.CandidacyStatus, decidedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidacies[id]
	if !ok || c.Status != from {
		return repository.ErrVersionConflict
	}
	c.Status = to
	c.DecidedAt = decidedAt
	return s.persons.touch(c.PersonID)
}

func (s *candidacyStoreStub) UpdateFinancing(ctx context.Context, id string, quote, financed *int64, financer *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidacies[id]
	if !ok || c.Status.Terminal() {
		return repository.ErrVersionConflict
	}
	c.QuoteAmountCents = quote
	c.FinancedAmountCents = financed
	c.Financer = financer
	return nil
}

type enrollmentStoreStub struct {
	mu          sync.Mutex
	enrollments map[string]*models.Enrollment
	persons     *personStoreStub
	order       []string
}

func newEnrollmentStoreStub(enrollments ...models.Enrollment) *enrollmentStoreStub {
	s := &enrollmentStoreStub{enrollments: map[string]*models.Enrollment{}}
	for i := range enrollments {
		e := enrollments[i]
		s.enrollments[e.ID] = &e
		s.order = append(s.order, e.ID)
	}
	return s
}

func (s *enrollmentStoreStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *enrollmentStoreStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Enrollment
	for _, id := range s.order {
		e := s.enrollments[id]
		if filter.PersonID != "" && e.PersonID != filter.PersonID {
			continue
		}
		if filter.ProgramTier != "" && e.ProgramTier != filter.ProgramTier {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *enrollmentStoreStub) ListByPerson(ctx context.Context, personID string) ([]models.Enrollment, error) {
	return s.List(ctx, models.EnrollmentFilter{PersonID: personID})
}

func (s *enrollmentStoreStub) Create(ctx context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.CandidacyID == enrollment.CandidacyID {
			return repository.ErrEnrollmentExists
		}
	}
	if err := s.persons.touch(enrollment.PersonID); err != nil {
		return err
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = fixedNow.Add(-24 * time.Hour)
	}
	cp := *enrollment
	s.enrollments[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	return nil
}

func (s *enrollmentStoreStub) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, endDate *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok || e.Status != from {
		return repository.ErrVersionConflict
	}
	e.Status = to
	e.EndDate = endDate
	return s.persons.touch(e.PersonID)
}

type documentStoreStub struct {
	mu        sync.Mutex
	documents map[string]*models.Document
	order     []string
}

func newDocumentStoreStub(documents ...models.Document) *documentStoreStub {
	s := &documentStoreStub{documents: map[string]*models.Document{}}
	for i := range documents {
		d := documents[i]
		s.documents[d.ID] = &d
		s.order = append(s.order, d.ID)
	}
	return s
}

func (s *documentStoreStub) FindByID(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (s *documentStoreStub) ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, id := range s.order {
		if d := s.documents[id]; d.CandidacyID == candidacyID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *documentStoreStub) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	cp := *doc
	s.documents[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	return nil
}

func (s *documentStoreStub) UpdateReview(ctx context.Context, params repository.UpdateReviewParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[params.ID]
	if !ok || d.Status != params.FromStatus {
		return repository.ErrVersionConflict
	}
	d.Status = params.Status
	d.ExpiresAt = params.ExpiresAt
	d.ExemptionJustification = params.ExemptionJustification
	d.ReviewNote = params.ReviewNote
	d.ReviewedBy = params.ReviewedBy
	reviewedAt := params.ReviewedAt
	d.ReviewedAt = &reviewedAt
	return nil
}

type resyncStub struct {
	calls []string
	err   error
}

func (s *resyncStub) Resync(ctx context.Context, personID string) (*models.LifecycleTransition, error) {
	s.calls = append(s.calls, personID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.LifecycleTransition{PersonID: personID, Previous: models.LifecycleStageNew, Current: models.LifecycleStageCandidate, Changed: true, Attempts: 1}, nil
}

type cacheRepoStub struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = raw
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
		s.deletes = append(s.deletes, key)
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }
