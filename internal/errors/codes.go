// Package errors provides structured error handling for strukindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, directory)
//   - 4XX: Validation errors
//   - 5XX: Persistence and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and directory I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates persistence and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeBasePathAbsent = "ERR_103_BASE_PATH_ABSENT"

	// IO errors (200-299)
	ErrCodeYearDirNotFound = "ERR_201_YEAR_DIR_NOT_FOUND"
	ErrCodeFileUnreadable  = "ERR_202_FILE_UNREADABLE"
	ErrCodeWatermarkWrite  = "ERR_203_WATERMARK_WRITE"

	// Validation errors (400-499)
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidKey      = "ERR_402_INVALID_KEY"
	ErrCodeInvalidDate     = "ERR_403_INVALID_DATE"
	ErrCodeReceiptNotFound = "ERR_404_RECEIPT_NOT_FOUND"

	// Persistence / internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeStoreOpen       = "ERR_502_STORE_OPEN"
	ErrCodeBatchWrite      = "ERR_503_BATCH_WRITE"
	ErrCodeBuildInProgress = "ERR_504_BUILD_IN_PROGRESS"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract first digit of the numeric portion (e.g., "2" from "ERR_201_...")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid, ErrCodeBasePathAbsent,
		ErrCodeYearDirNotFound, ErrCodeStoreOpen:
		// Entry-point errors abort before any partial index state exists.
		return SeverityFatal
	case ErrCodeReceiptNotFound, ErrCodeBuildInProgress:
		return SeverityInfo
	case ErrCodeFileUnreadable:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable condition.
// An unreadable receipt file is retried on the next normalizer pass; a
// failed batch write is retried wholesale by the next build run since the
// watermark does not advance.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeFileUnreadable, ErrCodeBatchWrite, ErrCodeBuildInProgress:
		return true
	default:
		return false
	}
}
