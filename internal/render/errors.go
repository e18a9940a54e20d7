package render

import "fmt"

// ValidationError reports a malformed or incomplete request. It is always
// raised before any network or storage call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UploadError reports a blob store upload failure.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// InferenceError reports an external provider failure or an unusable provider
// response. Provider names the adapter that failed.
type InferenceError struct {
	Provider string
	Err      error
}

func (e *InferenceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

// FetchError reports that the generated asset could not be retrieved from the
// provider's URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch generated asset: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
