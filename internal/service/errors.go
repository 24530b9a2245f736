package service

import "errors"

var (
	// ErrInvalidStartedAt marks an event whose start time is missing or malformed.
	ErrInvalidStartedAt = errors.New("could not parse started_at timestamp")
	// ErrBatchTooLarge is returned when a batch exceeds the configured size.
	ErrBatchTooLarge = errors.New("ingest batch exceeds the maximum size")
	// ErrBatchCommit is returned when the batch transaction cannot be committed.
	ErrBatchCommit = errors.New("ingest batch could not be committed")
	// ErrAttemptNotFound indicates the attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptDeduplicated indicates a scoring operation on a duplicate attempt.
	ErrAttemptDeduplicated = errors.New("cannot recompute score for a deduplicated attempt")
	// ErrFlagReasonRequired indicates a flag without a usable reason.
	ErrFlagReasonRequired = errors.New("flag reason cannot be empty")
	// ErrTestNotFound indicates the test does not exist.
	ErrTestNotFound = errors.New("test not found")
	// ErrInvalidScoringConfig indicates a rejected marking scheme or answer key.
	ErrInvalidScoringConfig = errors.New("invalid scoring configuration")
	// ErrUnsupportedExport indicates an uploaded export that is not JSON.
	ErrUnsupportedExport = errors.New("export must be a JSON document")
	// ErrInvalidExport indicates a JSON export that does not hold source events.
	ErrInvalidExport = errors.New("export could not be parsed")
	// ErrInvalidAttemptFilter indicates a malformed attempt listing filter.
	ErrInvalidAttemptFilter = errors.New("invalid attempt filter")
	// ErrInvalidActivityFilter indicates a malformed activity listing filter.
	ErrInvalidActivityFilter = errors.New("invalid activity filter")
)

const invalidStartedAtReason = "Could not parse started_at timestamp"
