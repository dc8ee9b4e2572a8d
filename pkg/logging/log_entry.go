package logging

// LogEntry represents a structured log record with fields particularly
// relevant to oracle-backed triage runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Oracle-specific fields
	RunID     string     // The pipeline invocation this record belongs to
	ModelID   string     // The oracle model being used
	TokenInfo *TokenInfo // Token usage information

	// General structured data
	Fields map[string]interface{}
}

// TokenInfo tracks token usage for cost and performance monitoring.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
