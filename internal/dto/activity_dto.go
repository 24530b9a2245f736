package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// ActivityListRequest filters the review audit trail.
type ActivityListRequest struct {
	Action     string `query:"action" validate:"omitempty,oneof=attempt.flagged attempt.recomputed test.scoring_updated"`
	EntityType string `query:"entity_type" validate:"omitempty,oneof=attempt test"`
	EntityID   string `query:"entity_id" validate:"omitempty,max=36"`
	ActorID    string `query:"actor_id" validate:"omitempty,max=255"`
	Since      string `query:"since"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	PerPage    int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// ActivityResponse is one audit trail entry.
type ActivityResponse struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actor_id,omitempty"`
	ActorRole  string                 `json:"actor_role,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewActivityResponse maps a stored entry.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := make(map[string]interface{}, len(entry.Metadata))
	for key, value := range entry.Metadata {
		metadata[key] = plainJSONValue(value)
	}
	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
		CreatedAt:  entry.CreatedAt,
	}
}

// ActivityListResponse is a page of audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// plainJSONValue turns json.Number values, as read back from JSON columns,
// into float64 so metadata matches what was written.
func plainJSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = plainJSONValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = plainJSONValue(item)
		}
		return out
	}
	return value
}
