package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// DefaultSeriesLimit caps the occurrences a single RRULE may create.
const DefaultSeriesLimit = 52

const seriesHorizon = 1 // years

type appointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	FindByID(ctx context.Context, id int64) (*models.Appointment, error)
	Create(ctx context.Context, appt *models.Appointment) error
	CreateMany(ctx context.Context, appts []models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
	Delete(ctx context.Context, id int64) error
}

type resourceLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Resource, error)
}

// AppointmentServiceConfig tunes appointment creation.
type AppointmentServiceConfig struct {
	SeriesLimit int
}

// AppointmentService manages appointments and keeps cached grids fresh.
type AppointmentService struct {
	repo      appointmentRepository
	resources resourceLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AppointmentServiceConfig
}

// NewAppointmentService constructs an AppointmentService. cache and metrics may be nil.
func NewAppointmentService(repo appointmentRepository, resources resourceLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AppointmentServiceConfig) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SeriesLimit <= 0 {
		cfg.SeriesLimit = DefaultSeriesLimit
	}
	return &AppointmentService{repo: repo, resources: resources, cache: cache, metrics: metrics, validator: validate, logger: logger, config: cfg}
}

// List returns appointments matching filter in grid order.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	start := time.Now()
	appts, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("appointments_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	return appts, nil
}

// Get returns an appointment by id.
func (s *AppointmentService) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

// Create validates and stores one appointment.
func (s *AppointmentService) Create(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}
	appt := appointmentFromInput(input)
	if err := s.repo.Create(ctx, &appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}
	s.invalidateGrids(ctx)
	return &appt, nil
}

// CreateSeries expands an RRULE from the input's date and start time and
// stores one appointment per occurrence, up to the series limit.
func (s *AppointmentService) CreateSeries(ctx context.Context, input models.AppointmentSeriesInput) ([]models.Appointment, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment series payload")
	}
	if err := s.validateInput(ctx, input.AppointmentInput); err != nil {
		return nil, err
	}

	rule, err := rrule.StrToRRule(input.RRule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rrule")
	}
	dtstart := input.StartTime.On(input.Date, time.UTC)
	rule.DTStart(dtstart)
	occurrences := rule.Between(dtstart, dtstart.AddDate(seriesHorizon, 0, 0), true)
	if len(occurrences) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rrule yields no occurrences")
	}
	if len(occurrences) > s.config.SeriesLimit {
		s.logger.Info("appointment series truncated", zap.Int("occurrences", len(occurrences)), zap.Int("limit", s.config.SeriesLimit))
		occurrences = occurrences[:s.config.SeriesLimit]
	}

	appts := make([]models.Appointment, len(occurrences))
	for i, occurrence := range occurrences {
		appt := appointmentFromInput(input.AppointmentInput)
		appt.Date = caldate.Of(occurrence)
		appts[i] = appt
	}
	if err := s.repo.CreateMany(ctx, appts); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment series")
	}
	s.invalidateGrids(ctx)
	return appts, nil
}

// Update applies a partial change. The merged appointment must still have a
// positive duration and an existing resource.
func (s *AppointmentService) Update(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(appt)
	if appt.StartTime >= appt.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if patch.ResourceID != nil {
		if err := s.ensureResource(ctx, appt.ResourceID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, appt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}
	s.invalidateGrids(ctx)
	return appt, nil
}

// Delete removes an appointment.
func (s *AppointmentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	s.invalidateGrids(ctx)
	return nil
}

func (s *AppointmentService) validateInput(ctx context.Context, input models.AppointmentInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	if input.Date.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if input.StartTime >= input.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return s.ensureResource(ctx, input.ResourceID)
}

func (s *AppointmentService) ensureResource(ctx context.Context, id int64) error {
	if s.resources == nil {
		return nil
	}
	if _, err := s.resources.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrValidation, "resource does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return nil
}

func (s *AppointmentService) invalidateGrids(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cachePrefixGrid+"*")
}

func appointmentFromInput(input models.AppointmentInput) models.Appointment {
	return models.Appointment{
		ResourceID: input.ResourceID,
		ClientID:   input.ClientID,
		Date:       input.Date,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		Title:      input.Title,
		ClientName: input.ClientName,
		ColorTag:   input.ColorTag,
		Notes:      input.Notes,
	}
}
