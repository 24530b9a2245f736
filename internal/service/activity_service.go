package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

const (
	defaultActivityPageSize = 20
	maxActivityPageSize     = 100
)

// ActivityService exposes the review audit trail.
type ActivityService interface {
	List(ctx context.Context, request dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	store     repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(store repository.Store, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) List(ctx context.Context, request dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.ActivityListResponse{}, err
	}

	filter := repository.ActivityLogFilter{
		Page:       request.Page,
		PageSize:   request.PerPage,
		ActorID:    strings.TrimSpace(request.ActorID),
		Action:     request.Action,
		EntityType: request.EntityType,
		EntityID:   strings.TrimSpace(request.EntityID),
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultActivityPageSize
	}
	if filter.PageSize > maxActivityPageSize {
		filter.PageSize = maxActivityPageSize
	}
	if raw := strings.TrimSpace(request.Since); raw != "" {
		since, err := parseTimestamp(raw)
		if err != nil {
			return dto.ActivityListResponse{}, fmt.Errorf("%w: since", ErrInvalidActivityFilter)
		}
		filter.Since = &since
	}

	entries, total, err := s.store.Activity().List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// recordActivity appends an audit entry inside the caller's transaction.
func recordActivity(ctx context.Context, store repository.Store, actor ReviewActor, action, entityType, entityID string, metadata map[string]interface{}) error {
	entry := models.ActivityLog{
		ActorID:    strings.TrimSpace(actor.Subject),
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   datatypes.JSONMap(metadata),
	}
	if err := store.Activity().Create(ctx, &entry); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}
