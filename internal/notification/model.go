package notification

// Severity classifies a notice for the UI
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notice is a transient user-facing message. Duration is the auto-dismiss
// window in milliseconds; notices are never persisted.
type Notice struct {
	ID         string   `json:"id"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	DurationMs int64    `json:"duration_ms"`
}
