package logger

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID      = "run_id"
	FieldConversion = "conversion"

	// Conversion parameters
	FieldTarget      = "target"
	FieldFormat      = "format"
	FieldPipeline    = "pipeline"
	FieldFilePattern = "file_pattern"

	// Files and paths
	FieldFile      = "file"
	FieldPath      = "path"
	FieldOutputDir = "output_dir"

	// Counts and timing
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"

	// Errors and status
	FieldError      = "error"
	FieldExitStatus = "exit_status"
	FieldStatus     = "status"
)
