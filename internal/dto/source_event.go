package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSourceEvents is returned when an export holds no events.
var ErrNoSourceEvents = errors.New("export contains no events")

// SourceEvent is the nested attempt format found in coaching-centre exports.
type SourceEvent struct {
	SourceEventID string            `json:"source_event_id"`
	Student       SourceStudent     `json:"student"`
	Test          SourceTest        `json:"test"`
	StartedAt     string            `json:"started_at"`
	SubmittedAt   *string           `json:"submitted_at"`
	Answers       map[string]string `json:"answers"`
	Channel       string            `json:"channel"`
}

// SourceStudent is the student block of an export event.
type SourceStudent struct {
	FullName string  `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// SourceTest is the test block of an export event.
type SourceTest struct {
	Name string `json:"name"`
}

// ToAttemptEvent flattens the export event into the ingest shape. The test
// reference is derived from the test name.
func (e SourceEvent) ToAttemptEvent() AttemptEventRequest {
	answers := e.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	channel := e.Channel
	if channel == "" {
		channel = "unknown"
	}

	return AttemptEventRequest{
		EventID:      e.SourceEventID,
		StudentName:  e.Student.FullName,
		StudentEmail: e.Student.Email,
		StudentPhone: e.Student.Phone,
		TestID:       strings.ToLower(strings.ReplaceAll(e.Test.Name, " ", "-")),
		TestName:     e.Test.Name,
		StartedAt:    e.StartedAt,
		SubmittedAt:  e.SubmittedAt,
		Answers:      answers,
		Channel:      channel,
	}
}

// ParseSourceEvents decodes a JSON array of export events into an ingest request.
func ParseSourceEvents(data []byte) (IngestRequest, error) {
	var events []SourceEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return IngestRequest{}, fmt.Errorf("decode export: %w", err)
	}
	if len(events) == 0 {
		return IngestRequest{}, ErrNoSourceEvents
	}

	request := IngestRequest{Events: make([]AttemptEventRequest, 0, len(events))}
	for _, event := range events {
		request.Events = append(request.Events, event.ToAttemptEvent())
	}
	return request, nil
}
