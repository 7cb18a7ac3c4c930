package logging

// LogEntry represents a structured log record emitted during configuration
// resolution.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Resolution-specific fields
	RunID string // Identifier of the resolution run, if any
	Phase string // Execution phase being resolved, if any

	// General structured data
	Fields map[string]interface{}
}
