package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/internal/repository"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
	"github.com/noah-isme/sma-crm-api/pkg/jobs"
)

const (
	lifecycleSummaryCacheKey = "lifecycle:summary"
	defaultResyncAttempts    = 3
	resyncPageSize           = 500
	resyncJobType            = "lifecycle_resync"
)

type lifecyclePersonStore interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
	UpdateLifecycleStage(ctx context.Context, id string, stage models.LifecycleStage, expectedVersion int64) error
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	CountByStage(ctx context.Context) ([]models.LifecycleStageCount, error)
}

type candidaciesByPerson interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error)
}

type enrollmentsByPerson interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Enrollment, error)
}

// LifecycleServiceConfig tunes the transition engine.
type LifecycleServiceConfig struct {
	MaxAttempts     int
	SummaryCacheTTL time.Duration
	ResyncWorkers   int
	ResyncRetries   int
	RetryDelay      time.Duration
}

// LifecycleService writes the classifier's verdict back onto person records.
type LifecycleService struct {
	persons     lifecyclePersonStore
	candidacies candidaciesByPerson
	enrollments enrollmentsByPerson
	cache       *CacheService
	metrics     *MetricsService
	cfg         LifecycleServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(
	persons lifecyclePersonStore,
	candidacies candidaciesByPerson,
	enrollments enrollmentsByPerson,
	cache *CacheService,
	metrics *MetricsService,
	cfg LifecycleServiceConfig,
	logger *zap.Logger,
) *LifecycleService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultResyncAttempts
	}
	if cfg.ResyncWorkers <= 0 {
		cfg.ResyncWorkers = 4
	}
	if cfg.ResyncRetries < 0 {
		cfg.ResyncRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		persons:     persons,
		candidacies: candidacies,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Current classifies the person without writing anything.
func (s *LifecycleService) Current(ctx context.Context, personID string) (*models.LifecycleTransition, error) {
	person, stage, err := s.classify(ctx, personID)
	if err != nil {
		return nil, err
	}
	return &models.LifecycleTransition{
		PersonID: person.ID,
		Previous: person.LifecycleStage,
		Current:  stage,
		Changed:  person.LifecycleStage != stage,
	}, nil
}

// Resync recomputes the stage of a person and persists it when it differs from the
// stored value. The write is conditional on the person version read at the start of
// the attempt; a lost race restarts from the read, up to MaxAttempts times. Every
// candidacy, enrollment and dossier write bumps that version in its own transaction,
// so a classification made before such a commit can never be written after it.
func (s *LifecycleService) Resync(ctx context.Context, personID string) (*models.LifecycleTransition, error) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		person, stage, err := s.classify(ctx, personID)
		if err != nil {
			if errors.Is(err, appErrors.ErrLifecycleInconsistent) {
				s.metrics.ObserveResync(ResyncOutcomeInconsistent, attempt)
				s.logger.Error("lifecycle records inconsistent, stage left untouched",
					zap.String("person_id", personID),
					zap.Error(err),
				)
			} else {
				s.metrics.ObserveResync(ResyncOutcomeError, attempt)
			}
			return nil, err
		}

		transition := &models.LifecycleTransition{
			PersonID: person.ID,
			Previous: person.LifecycleStage,
			Current:  stage,
			Attempts: attempt,
		}
		if stage == person.LifecycleStage {
			s.metrics.ObserveResync(ResyncOutcomeUnchanged, attempt)
			return transition, nil
		}

		err = s.persons.UpdateLifecycleStage(ctx, person.ID, stage, person.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.RecordVersionConflict()
			s.logger.Warn("lifecycle write lost to a concurrent update",
				zap.String("person_id", personID),
				zap.Int("attempt", attempt),
				zap.Int64("version", person.Version),
			)
			continue
		}
		if err != nil {
			s.metrics.ObserveResync(ResyncOutcomeError, attempt)
			return nil, internalError(err, "failed to persist lifecycle stage")
		}

		transition.Changed = true
		s.cache.Invalidate(ctx, lifecycleSummaryCacheKey)
		s.metrics.ObserveResync(ResyncOutcomeChanged, attempt)
		s.logger.Info("lifecycle stage changed",
			zap.String("person_id", personID),
			zap.String("previous", string(transition.Previous)),
			zap.String("current", string(transition.Current)),
			zap.Int("attempt", attempt),
		)
		return transition, nil
	}

	s.metrics.ObserveResync(ResyncOutcomeConflict, s.cfg.MaxAttempts)
	s.logger.Error("lifecycle resync gave up after repeated conflicts",
		zap.String("person_id", personID),
		zap.Int("attempts", s.cfg.MaxAttempts),
	)
	return nil, appErrors.Clone(appErrors.ErrLifecycleConflict,
		fmt.Sprintf("lifecycle of person %s changed concurrently %d times, retry later", personID, s.cfg.MaxAttempts))
}

func (s *LifecycleService) classify(ctx context.Context, personID string) (*models.Person, models.LifecycleStage, error) {
	person, err := s.persons.FindByID(ctx, personID)
	if err != nil {
		return nil, "", storeError(err, "person not found", "failed to load person")
	}

	var (
		candidacies []models.Candidacy
		enrollments []models.Enrollment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidacies, err = s.candidacies.ListByPerson(gctx, personID)
		return err
	})
	g.Go(func() error {
		var err error
		enrollments, err = s.enrollments.ListByPerson(gctx, personID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", storeError(err, "person records not found", "failed to load person records")
	}

	stage, err := ClassifyLifecycle(candidacies, enrollments, person.DossierSentAt)
	if err != nil {
		return nil, "", err
	}
	return person, stage, nil
}

// Summary returns the stage distribution, served from cache when enabled.
func (s *LifecycleService) Summary(ctx context.Context) (*models.LifecycleSummary, error) {
	var cached models.LifecycleSummary
	if s.cache.Get(ctx, lifecycleSummaryCacheKey, &cached) {
		return &cached, nil
	}

	counts, err := s.persons.CountByStage(ctx)
	if err != nil {
		return nil, internalError(err, "failed to count lifecycle stages")
	}
	byStage := make(map[models.LifecycleStage]int, len(counts))
	for _, count := range counts {
		byStage[count.Stage] += count.Count
	}

	summary := &models.LifecycleSummary{
		Stages:      make([]models.LifecycleStageCount, 0, len(models.LifecycleStages)),
		GeneratedAt: s.now().UTC(),
	}
	for _, stage := range models.LifecycleStages {
		summary.Stages = append(summary.Stages, models.LifecycleStageCount{Stage: stage, Count: byStage[stage]})
		summary.Total += byStage[stage]
	}
	s.cache.Set(ctx, lifecycleSummaryCacheKey, summary, s.cfg.SummaryCacheTTL)
	return summary, nil
}

// ResyncReport summarises a batch reclassification.
type ResyncReport struct {
	Scanned      int64         `json:"scanned"`
	Changed      int64         `json:"changed"`
	Unchanged    int64         `json:"unchanged"`
	Inconsistent int64         `json:"inconsistent"`
	Failed       int64         `json:"failed"`
	Duration     time.Duration `json:"duration"`
}

// ResyncAll reclassifies every person through a worker queue. Conflicts and store errors
// are retried by the queue; inconsistent records are counted and skipped.
func (s *LifecycleService) ResyncAll(ctx context.Context) (*ResyncReport, error) {
	start := time.Now()
	report := &ResyncReport{}

	queue := jobs.NewQueue(resyncJobType, func(ctx context.Context, job jobs.Job) error {
		personID, _ := job.Payload.(string)
		transition, err := s.Resync(ctx, personID)
		if err != nil {
			if errors.Is(err, appErrors.ErrLifecycleInconsistent) || errors.Is(err, appErrors.ErrNotFound) {
				atomic.AddInt64(&report.Inconsistent, 1)
				return nil
			}
			return err
		}
		if transition.Changed {
			atomic.AddInt64(&report.Changed, 1)
		} else {
			atomic.AddInt64(&report.Unchanged, 1)
		}
		return nil
	}, jobs.QueueConfig{
		Workers:    s.cfg.ResyncWorkers,
		MaxRetries: s.cfg.ResyncRetries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     s.logger,
		OnFailure: func(job jobs.Job, err error) {
			atomic.AddInt64(&report.Failed, 1)
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	afterID := ""
	for {
		ids, err := s.persons.ListIDs(ctx, afterID, resyncPageSize)
		if err != nil {
			return nil, internalError(err, "failed to page person ids")
		}
		for _, id := range ids {
			if err := queue.Enqueue(jobs.Job{ID: id, Type: resyncJobType, Payload: id}); err != nil {
				return nil, internalError(err, "failed to enqueue resync")
			}
			report.Scanned++
		}
		if len(ids) < resyncPageSize {
			break
		}
		afterID = ids[len(ids)-1]
	}

	if err := queue.Drain(ctx); err != nil {
		return nil, internalError(err, "resync batch interrupted")
	}
	report.Duration = time.Since(start)
	s.logger.Info("lifecycle batch resync finished",
		zap.Int64("scanned", report.Scanned),
		zap.Int64("changed", report.Changed),
		zap.Int64("unchanged", report.Unchanged),
		zap.Int64("inconsistent", report.Inconsistent),
		zap.Int64("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
