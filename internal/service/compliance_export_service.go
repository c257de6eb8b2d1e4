package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
	"github.com/noah-isme/sma-crm-api/pkg/export"
)

const exportEvaluationConcurrency = 8

type candidacyLister interface {
	List(ctx context.Context, filter models.CandidacyFilter) ([]models.Candidacy, error)
}

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type exportSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string) (exportID, relPath string, expiresAt time.Time, err error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ComplianceExportConfig configures audit exports.
type ComplianceExportConfig struct {
	Enabled     bool
	DownloadURL string
	MaxRows     int
}

// ComplianceExportService renders compliance audits of open dossiers to CSV or PDF.
type ComplianceExportService struct {
	candidacies candidacyLister
	enrollments enrollmentLister
	persons     personReader
	documents   documentLister
	evaluator   *DossierEvaluator
	storage     exportStorage
	signer      exportSigner
	renderers   map[models.ExportFormat]datasetRenderer
	metrics     *MetricsService
	cfg         ComplianceExportConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewComplianceExportService constructs the service.
func NewComplianceExportService(
	candidacies candidacyLister,
	enrollments enrollmentLister,
	persons personReader,
	documents documentLister,
	evaluator *DossierEvaluator,
	storage exportStorage,
	signer exportSigner,
	metrics *MetricsService,
	cfg ComplianceExportConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ComplianceExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	return &ComplianceExportService{
		candidacies: candidacies,
		enrollments: enrollments,
		persons:     persons,
		documents:   documents,
		evaluator:   evaluator,
		storage:     storage,
		signer:      signer,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

type auditTarget struct {
	personID    string
	candidacyID string
	tier        models.ProgramTier
	recordID    string
	status      string
}

// Generate evaluates every open candidacy or in-progress enrollment, renders the audit and
// returns a signed download token.
func (s *ComplianceExportService) Generate(ctx context.Context, req dto.ComplianceExportRequest) (*models.ComplianceExport, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "compliance exports are disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	scope := models.ComplianceExportScope(req.Scope)
	format := models.ExportFormat(req.Format)
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	var tier models.ProgramTier
	if req.ProgramTier != "" {
		parsed, err := models.ParseProgramTier(req.ProgramTier)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown program tier")
		}
		tier = parsed
	}

	targets, err := s.loadTargets(ctx, scope, tier)
	if err != nil {
		return nil, err
	}
	rows, compliant, err := s.evaluateTargets(ctx, targets)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:    "Dossier compliance audit",
		Subtitle: fmt.Sprintf("%s %s generated %s", scope, tierLabel(tier), time.Now().UTC().Format(time.RFC3339)),
		Headers:  []string{"Person", "Email", "Record", "Tier", "Status", "Compliant", "Missing", "Expired", "Pending"},
		Rows:     rows,
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render compliance export")
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(path.Join("compliance", exportID+"."+renderer.Extension()), payload)
	if err != nil {
		return nil, internalError(err, "failed to store compliance export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign compliance export")
	}

	s.metrics.RecordExport(scope, format)
	s.logger.Info("compliance export generated",
		zap.String("export_id", exportID),
		zap.String("scope", string(scope)),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
		zap.Int("compliant", compliant),
	)
	return &models.ComplianceExport{
		ID:           exportID,
		Scope:        scope,
		Format:       format,
		ProgramTier:  tier,
		Rows:         len(rows),
		Compliant:    compliant,
		RelativePath: relPath,
		Token:        token,
		URL:          strings.TrimRight(s.cfg.DownloadURL, "/") + "/" + token,
		GeneratedAt:  time.Now().UTC(),
		ExpiresAt:    expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ComplianceExportService) Download(ctx context.Context, token string) ([]byte, string, string, error) {
	exportID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", "", appErrors.CloneWrap(appErrors.ErrTokenInvalid, err, "")
	}
	payload, err := s.storage.Read(relPath)
	if err != nil {
		return nil, "", "", appErrors.CloneWrap(appErrors.ErrNotFound, err, "export file no longer available")
	}
	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	contentType := "application/octet-stream"
	for _, renderer := range s.renderers {
		if renderer.Extension() == ext {
			contentType = renderer.ContentType()
		}
	}
	return payload, contentType, fmt.Sprintf("compliance-%s.%s", exportID, ext), nil
}

func (s *ComplianceExportService) loadTargets(ctx context.Context, scope models.ComplianceExportScope, tier models.ProgramTier) ([]auditTarget, error) {
	var targets []auditTarget
	switch scope {
	case models.ExportScopeCandidacies:
		candidacies, err := s.candidacies.List(ctx, models.CandidacyFilter{ProgramTier: tier, OpenOnly: true, Limit: s.cfg.MaxRows})
		if err != nil {
			return nil, storeError(err, "candidacies not found", "failed to list candidacies")
		}
		for _, c := range candidacies {
			targets = append(targets, auditTarget{personID: c.PersonID, candidacyID: c.ID, tier: c.ProgramTier, recordID: c.ID, status: string(c.Status)})
		}
	case models.ExportScopeEnrollments:
		enrollments, err := s.enrollments.List(ctx, models.EnrollmentFilter{ProgramTier: tier, Status: models.EnrollmentStatusInProgress, Limit: s.cfg.MaxRows})
		if err != nil {
			return nil, storeError(err, "enrollments not found", "failed to list enrollments")
		}
		for _, e := range enrollments {
			targets = append(targets, auditTarget{personID: e.PersonID, candidacyID: e.CandidacyID, tier: e.ProgramTier, recordID: e.ID, status: string(e.Status)})
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export scope")
	}
	return targets, nil
}

func (s *ComplianceExportService) evaluateTargets(ctx context.Context, targets []auditTarget) ([]map[string]string, int, error) {
	rows := make([]map[string]string, len(targets))
	var (
		mu        sync.Mutex
		compliant int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportEvaluationConcurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			person, err := s.persons.FindByID(gctx, target.personID)
			if err != nil {
				return storeError(err, "person not found", "failed to load person")
			}
			docs, err := s.documents.ListByCandidacy(gctx, target.candidacyID)
			if err != nil {
				return storeError(err, "documents not found", "failed to load dossier")
			}
			report := s.evaluator.Evaluate(target.tier, docs)
			if report.Compliant {
				mu.Lock()
				compliant++
				mu.Unlock()
			}
			rows[i] = map[string]string{
				"Person":    strings.TrimSpace(person.FirstName + " " + person.LastName),
				"Email":     person.Email,
				"Record":    target.recordID,
				"Tier":      string(report.ProgramTier),
				"Status":    target.status,
				"Compliant": yesNo(report.Compliant),
				"Missing":   joinKinds(report.MissingMandatory),
				"Expired":   joinKinds(report.ExpiredMandatory),
				"Pending":   joinKinds(report.PendingMandatory),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, compliant, nil
}

func joinKinds(kinds []models.DocumentKind) string {
	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = string(kind)
	}
	return strings.Join(parts, " ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func tierLabel(tier models.ProgramTier) string {
	if tier == "" {
		return "all tiers"
	}
	return string(tier)
}
