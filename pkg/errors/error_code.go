package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown   ErrorCode = 1
	ErrCodeNullInput ErrorCode = 2

	// Rule errors (100-199)
	ErrCodeParse            ErrorCode = 100
	ErrCodeInvalidRule      ErrorCode = 101
	ErrCodeUnknownIndicator ErrorCode = 102
	ErrCodeInvalidArity     ErrorCode = 103

	// Data errors (200-299)
	ErrCodeNoData            ErrorCode = 200
	ErrCodeInsufficientData  ErrorCode = 201
	ErrCodeQueryFailed       ErrorCode = 202
	ErrCodeSourceUnavailable ErrorCode = 203
	ErrCodeEmptyUniverse     ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301
	ErrCodeInvalidPeriod        ErrorCode = 302

	// Portfolio errors (400-499)
	ErrCodePositionOpen     ErrorCode = 400
	ErrCodePositionNotFound ErrorCode = 401
	ErrCodeMaxPositions     ErrorCode = 402
	ErrCodeInvalidSizing    ErrorCode = 403

	// Engine errors (500-599)
	ErrCodeInvalidConfiguration ErrorCode = 500
	ErrCodeInvalidStrategy      ErrorCode = 501
	ErrCodeRunFailed            ErrorCode = 502
)
