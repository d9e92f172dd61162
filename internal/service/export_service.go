package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/export"
	"github.com/noah-isme/agenda-api/pkg/jobs"
	"github.com/noah-isme/agenda-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type gridSource interface {
	Build(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) (*models.GridView, error)
	Appointments(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) ([]models.Appointment, []models.Resource, error)
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupSchedule string
	ICSDomain       string
	Location        *time.Location
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// RenderedExport is an in-memory export returned without a job.
type RenderedExport struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportDownload is a resolved, opened export file.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService manages schedule export jobs and renders their files.
type ExportService struct {
	repo    exportJobStore
	queue   jobDispatcher
	grids   gridSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.GridPDFRenderer
	ics     *export.ICSRenderer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. queue may be attached later
// with SetQueue since the queue handler usually points back at the service.
func NewExportService(repo exportJobStore, grids gridSource, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ExportService{
		repo:    repo,
		grids:   grids,
		storage: files,
		signer:  signer,
		csv:     export.NewCSVExporter(export.CSVOptions{BOM: true}),
		pdf:     export.NewGridPDFRenderer(),
		ics:     export.NewICSRenderer(cfg.ICSDomain, cfg.Location),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetQueue attaches the dispatcher used by CreateJob.
func (s *ExportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob validates the request, persists the job and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, req dto.ExportRequest, session models.Session) (*dto.ExportJobResponse, error) {
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	granularity, err := models.ParseGranularity(req.View, models.GranularityWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view")
	}
	if req.ResourceID < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid resource_id")
	}
	if s.queue == nil {
		return nil, appErrors.Wrap(fmt.Errorf("export queue not configured"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "exports are disabled")
	}
	anchor := req.Date
	if anchor.IsZero() {
		anchor = todayIn(s.now(), s.cfg.Location)
	}
	resourceID := req.ResourceID
	if resourceID == 0 {
		resourceID = session.DefaultSelection().ResourceID
	}

	job := &models.ExportJob{
		Format:    req.Format,
		Params:    models.ExportJobParams{AnchorDate: anchor, Granularity: granularity, ResourceID: resourceID},
		Status:    models.ExportStatusQueued,
		CreatedBy: session.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Format)}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		s.metrics.RecordExportJob(job.Format, models.ExportStatusFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.RecordExportJob(job.Format, models.ExportStatusQueued)
	return &dto.ExportJobResponse{ID: job.ID, Format: job.Format, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata. Staff members only see their own jobs.
func (s *ExportService) GetStatus(ctx context.Context, id string, session models.Session) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if session.Role == models.RoleStaff && job.CreatedBy != session.UserID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		Format:    job.Format,
		Params:    job.Params,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// Generate renders the job's window and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	session := models.Session{UserID: job.CreatedBy, Role: models.RoleAdmin}
	payload, err := s.render(ctx, session, job.Format, job.Params.Window(), job.Params.Selection())
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/schedule/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenderNow renders window synchronously for session without storing it.
func (s *ExportService) RenderNow(ctx context.Context, session models.Session, format models.ExportFormat, window models.ViewWindow, selection models.ResourceSelection) (*RenderedExport, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	payload, err := s.render(ctx, session, format, window, selection)
	if err != nil {
		return nil, err
	}
	scope := "all"
	if !selection.IsAll() {
		scope = "resource-" + selection.String()
	}
	return &RenderedExport{
		Data:        payload,
		Filename:    fmt.Sprintf("schedule_%s_%s_%s.%s", window.Granularity, window.AnchorDate, scope, format),
		ContentType: contentType(format),
	}, nil
}

func (s *ExportService) render(ctx context.Context, session models.Session, format models.ExportFormat, window models.ViewWindow, selection models.ResourceSelection) ([]byte, error) {
	appts, resources, err := s.grids.Appointments(ctx, session, window, selection)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(resources))
	for _, resource := range resources {
		names[resource.ID] = resource.DisplayName
	}
	title := exportTitle(window)

	switch format {
	case models.ExportFormatCSV:
		return s.csv.Render(appointmentDataset(appts, names))
	case models.ExportFormatICS:
		return s.ics.Render(title, appts, names)
	case models.ExportFormatPDF:
		grid, err := s.grids.Build(ctx, session, window, selection)
		if err != nil {
			return nil, err
		}
		return s.pdf.Render(*grid, title, appointmentDataset(appts, names))
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file missing")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentType(job.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Format)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Sugar().Infow("recovered queued export jobs", "count", len(pending))
	}
}

// StartCleanup schedules purging of expired exports on CleanupSchedule. The
// scheduler stops when ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) error {
	if s.cfg.CleanupSchedule == "" {
		return nil
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(s.cfg.CleanupSchedule, func() { s.CleanupExpired(ctx) }); err != nil {
		return fmt.Errorf("schedule export cleanup: %w", err)
	}
	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return nil
}

// CleanupExpired removes files of jobs finished before the result TTL.
func (s *ExportService) CleanupExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	finished, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, job := range finished {
		if job.ResultURL == nil {
			continue
		}
		_, relPath, _, err := s.signer.Parse(extractToken(*job.ResultURL), true)
		if err != nil {
			continue
		}
		if err := s.storage.Delete(relPath); err != nil {
			s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
		}
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("export files purged", "count", len(removed))
	}
}

func (s *ExportService) markFailed(ctx context.Context, id, msg string) {
	status := models.ExportStatusFailed
	progress := 100
	now := s.now().UTC()
	_ = s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	})
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	scope := "all"
	if job.Params.ResourceID > 0 {
		scope = "resource-" + strconv.FormatInt(job.Params.ResourceID, 10)
	}
	return fmt.Sprintf("%s/schedule_%s_%s_%s_%s.%s",
		job.Params.AnchorDate.In(time.UTC).Format("2006-01"),
		job.Params.Granularity,
		job.Params.AnchorDate,
		scope,
		s.now().UTC().Format("150405"),
		job.Format)
}

func todayIn(now time.Time, loc *time.Location) caldate.Date {
	return caldate.Of(now.In(loc))
}

func exportTitle(window models.ViewWindow) string {
	start, end := WindowRange(window)
	if start == end {
		return fmt.Sprintf("Schedule %s", start)
	}
	return fmt.Sprintf("Schedule %s to %s", start, end)
}

func appointmentDataset(appts []models.Appointment, resources map[int64]string) export.Dataset {
	data := export.Dataset{Headers: []string{"ID", "Date", "Start", "End", "Resource", "Title", "Client", "Notes"}}
	for _, appt := range appts {
		notes := ""
		if appt.Notes != nil {
			notes = *appt.Notes
		}
		data.Append(map[string]string{
			"ID":       strconv.FormatInt(appt.ID, 10),
			"Date":     appt.Date.String(),
			"Start":    appt.StartTime.String(),
			"End":      appt.EndTime.String(),
			"Resource": resources[appt.ResourceID],
			"Title":    appt.Title,
			"Client":   appt.ClientName,
			"Notes":    notes,
		})
	}
	return data
}

func contentType(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatCSV:
		return "text/csv"
	case models.ExportFormatPDF:
		return "application/pdf"
	case models.ExportFormatICS:
		return "text/calendar"
	default:
		return "application/octet-stream"
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorker bridges queue jobs to the generator.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	start := time.Now()
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.RecordExportJob(record.Format, models.ExportStatusFailed)
		} else {
			queued := models.ExportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	cleared := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &cleared,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordExportJob(record.Format, models.ExportStatusFinished)
	w.logger.Info("export finished",
		zap.String("job_id", job.ID),
		zap.String("format", string(record.Format)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
