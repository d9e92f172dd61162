package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type resourceRepository interface {
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
	FindByID(ctx context.Context, id int64) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	Update(ctx context.Context, resource *models.Resource) error
	Deactivate(ctx context.Context, id int64) error
}

// ResourceService manages the staff resources shown as grid columns.
type ResourceService struct {
	repo      resourceRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs a ResourceService. cache may be nil.
func NewResourceService(repo resourceRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns resources, served from cache when possible.
func (s *ResourceService) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	key := cacheKey(cachePrefixResources, filter.IncludeInactive)
	cacheable := len(filter.IDs) == 0
	if cacheable {
		var cached []models.Resource
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	resources, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	if resources == nil {
		resources = []models.Resource{}
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, resources, s.cacheTTL)
	}
	return resources, nil
}

// Get returns a resource by id.
func (s *ResourceService) Get(ctx context.Context, id int64) (*models.Resource, error) {
	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return resource, nil
}

// Create validates and stores a new resource.
func (s *ResourceService) Create(ctx context.Context, input models.ResourceInput) (*models.Resource, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	resource := &models.Resource{Active: true}
	applyResourceInput(resource, input)
	if err := s.repo.Create(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	s.invalidate(ctx)
	s.logger.Info("resource created", zap.Int64("resource_id", resource.ID))
	return resource, nil
}

// Update replaces the writable fields of a resource.
func (s *ResourceService) Update(ctx context.Context, id int64, input models.ResourceInput) (*models.Resource, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	resource, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyResourceInput(resource, input)
	if err := s.repo.Update(ctx, resource); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}
	s.invalidate(ctx)
	return resource, nil
}

// Delete deactivates a resource; its appointments stay but are no longer
// placed in a column.
func (s *ResourceService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	s.invalidate(ctx)
	return nil
}

func (s *ResourceService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cachePrefixResources+"*")
	_ = s.cache.Invalidate(ctx, cachePrefixGrid+"*")
}

func applyResourceInput(resource *models.Resource, input models.ResourceInput) {
	resource.DisplayName = input.DisplayName
	resource.Email = input.Email
	resource.Phone = input.Phone
	resource.Color = input.Color
	if input.Active != nil {
		resource.Active = *input.Active
	}
}
