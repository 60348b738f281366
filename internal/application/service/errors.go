package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for the transport layer
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindImport
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindImport:
		return "import"
	}
	return "internal"
}

// Error codes surfaced to API clients
const (
	CodeDuplicateCode         = "DUPLICATE_CODE"
	CodeUnsupportedFileFormat = "UNSUPPORTED_FILE_FORMAT"
	CodeNoFileUploaded        = "NO_FILE_UPLOADED"
	CodeNoValidDataFound      = "NO_VALID_DATA_FOUND"
	CodeInvalidPrice          = "INVALID_PRICE"
	CodeVoucherNotFound       = "VOUCHER_NOT_FOUND"
	CodeImportFailed          = "IMPORT_FAILED"
	CodeInternal              = "INTERNAL_SERVER_ERROR"
)

// Error is the failure type returned by every service operation
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports a request the caller can fix
func NewValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError reports a missing voucher
func NewNotFoundError(id int64) *Error {
	return &Error{Kind: KindNotFound, Code: CodeVoucherNotFound, Message: fmt.Sprintf("voucher %d not found", id)}
}

// NewImportError reports an unreadable or unparsable import file
func NewImportError(err error) *Error {
	return &Error{Kind: KindImport, Code: CodeImportFailed, Message: "failed to read import file", Err: err}
}

// NewInternalError wraps an unexpected store or runtime failure
func NewInternalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// AsError extracts a service Error from err. Unknown errors become internal errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return NewInternalError("internal error", err)
}

// IsKind reports whether err is a service Error of kind k
func IsKind(err error, k ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == k
}

// ErrorCode returns the client-facing code of err, or "" when err is not a service Error
func ErrorCode(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func duplicateCodeError(code string) *Error {
	return NewValidationError(CodeDuplicateCode, fmt.Sprintf("voucher code %q already exists", code))
}
