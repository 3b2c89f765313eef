package apierr

// --- Indexing ---

func IndexBuildFailed(cause error) *Error {
	return Wrap(CodeIndexBuildFailed, 1, "failed to build repository index", cause)
}

func ParseFailed(path string, cause error) *Error {
	return Wrap(CodeParseFailed, 1, "failed to parse "+path, cause)
}

// --- Resolution ---

// TargetNotResolved mirrors the original bootstrap failure, which exits
// with status 2 rather than the generic 1.
func TargetNotResolved(target string) *Error {
	return New(CodeTargetNotResolved, 2, "cannot resolve target symbol: "+target)
}

func SymbolNotResolved(ref string) *Error {
	return New(CodeSymbolNotResolved, 1, "cannot resolve symbol: "+ref)
}

// --- LLM boundary ---

func LLMRequestFailed(cause error) *Error {
	return Wrap(CodeLLMRequestFailed, 1, "LLM request failed", cause)
}

func LLMSchemaInvalid(cause error) *Error {
	return Wrap(CodeLLMSchemaInvalid, 1, "LLM response did not match the expected schema", cause)
}

// --- Output ---

func OutputWriteFailed(path string, cause error) *Error {
	return Wrap(CodeOutputWriteFailed, 1, "failed to write "+path, cause)
}

// --- Common ---

func InvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, 1, message)
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, 1, "internal error", cause)
}
