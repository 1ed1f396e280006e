package errors

import stderrors "errors"

// Engine error taxonomy. Call sites wrap these with fmt.Errorf("...: %w")
// and callers classify with errors.Is.
var (
	// ErrConfiguration is fatal at startup or schedule time.
	ErrConfiguration = stderrors.New("configuration error")

	// ErrProviderUnavailable means the content tree or fact store could not
	// be reached (including timeouts). The pair stays stale and is retried.
	ErrProviderUnavailable = stderrors.New("provider unavailable")

	// ErrStructural marks a cyclic or malformed content tree.
	ErrStructural = stderrors.New("structural error in content tree")

	// ErrNotification is recovered locally by the updater; it never
	// affects the aggregate write.
	ErrNotification = stderrors.New("notification failure")

	// ErrInvalidStateTransition is a caller bug, e.g. revoking a fully
	// complete aggregate.
	ErrInvalidStateTransition = stderrors.New("invalid state transition")

	// ErrNotFound is returned by providers for unknown courses or blocks.
	ErrNotFound = stderrors.New("not found")
)

const (
	HttpInternalError          = "internal_error"
	HttpInvalidJsonError       = "invalid_json"
	HttpProviderUnavailable    = "provider_unavailable"
	HttpStructuralError        = "structural_error"
	HttpInvalidStateTransition = "invalid_state_transition"
	HttpTickInProgress         = "tick_in_progress"
)

// ErrorResponse is the error response body for all HTTP handlers.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
