package apierr

// Code is a machine-readable error code, carried by every *Error and
// included in its Error() text.
type Code string

// Indexing errors.
const (
	CodeIndexBuildFailed Code = "INDEX_BUILD_FAILED"
	CodeParseFailed      Code = "PARSE_FAILED"
)

// Resolution errors.
const (
	CodeTargetNotResolved Code = "TARGET_NOT_RESOLVED"
	CodeSymbolNotResolved Code = "SYMBOL_NOT_RESOLVED"
)

// LLM boundary errors.
const (
	CodeLLMRequestFailed Code = "LLM_REQUEST_FAILED"
	CodeLLMSchemaInvalid Code = "LLM_SCHEMA_INVALID"
)

// Output errors.
const (
	CodeOutputWriteFailed Code = "OUTPUT_WRITE_FAILED"
)

// Common.
const (
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeInternalError  Code = "INTERNAL_ERROR"
)
