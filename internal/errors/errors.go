package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a capture error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"         // 404
	ErrUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE" // 415
	ErrInternalPage         ErrorCode = "INTERNAL_PAGE"          // 422
	ErrCancelled            ErrorCode = "CANCELLED"              // 499
	ErrInternal             ErrorCode = "INTERNAL"               // 500
	ErrExportFailed         ErrorCode = "EXPORT_FAILED"          // 502
)

// CaptureError represents a structured error with code, status, and details.
type CaptureError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. Never exposed to clients.
	Err error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CaptureError {
	return &CaptureError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CaptureError {
	return &CaptureError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewUnsupportedMediaType creates a 415 error for a request body that is not
// in the expected media type.
func NewUnsupportedMediaType(want string) *CaptureError {
	return &CaptureError{
		Code:    ErrUnsupportedMediaType,
		Status:  415,
		Message: fmt.Sprintf("Content-Type must be %s", want),
		Details: map[string]any{"content_type": want},
	}
}

// NewInternalPage creates a 422 error for URLs that belong to the browser itself
// (about:, chrome:, moz-extension:). These are never queued.
func NewInternalPage(url string) *CaptureError {
	return &CaptureError{
		Code:    ErrInternalPage,
		Status:  422,
		Message: "Cannot save internal browser pages.",
		Details: map[string]any{"url": url},
	}
}

// NewCancelled creates a 499 error for an operation whose context ended
// before it started.
func NewCancelled(op string) *CaptureError {
	return &CaptureError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CaptureError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CaptureError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewExportFailed creates a 502 error when the file-save mechanism rejects a download.
func NewExportFailed(filename string, err error) *CaptureError {
	msg := fmt.Sprintf("export of %s failed", filename)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &CaptureError{
		Code:    ErrExportFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"filename": filename},
		Err:     err,
	}
}

// Is checks if an error is (or wraps) a CaptureError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CaptureError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As extracts a CaptureError from err, wrapping unknown errors as INTERNAL.
func As(err error) *CaptureError {
	if err == nil {
		return nil
	}
	var cErr *CaptureError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewInternal(err)
}
