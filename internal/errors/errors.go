package errors

import (
	stderrors "errors"
	"fmt"

	"gowave/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid           = "CONFIG_INVALID"
	CodeValidationError         = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeInternalError           = "INTERNAL_ERROR"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInsufficientData        = "INSUFFICIENT_DATA"
	CodeShapeMismatch           = "SHAPE_MISMATCH"
	CodeInvalidWaveletParameter = "INVALID_WAVELET_PARAMETER"
	CodeDegenerateSeries        = "DEGENERATE_SERIES"
	CodeWeakInstrument          = "WEAK_INSTRUMENT"
	CodeRankDeficiency          = "RANK_DEFICIENCY"
)

var kindCodes = map[core.ErrorKind]string{
	core.KindInsufficientData:        CodeInsufficientData,
	core.KindInvalidInput:            CodeInvalidInput,
	core.KindShapeMismatch:           CodeShapeMismatch,
	core.KindInvalidWaveletParameter: CodeInvalidWaveletParameter,
	core.KindDegenerateSeries:        CodeDegenerateSeries,
	core.KindWeakInstrument:          CodeWeakInstrument,
	core.KindRankDeficiency:          CodeRankDeficiency,
}

// FromDomain wraps an analysis error with the code of its kind so callers
// outside the engine can report a stable code. AppErrors pass through.
func FromDomain(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	code, ok := kindCodes[core.Kind(err)]
	if !ok {
		code = CodeInternalError
	}
	return &AppError{Code: code, Cause: err}
}

// ExitCode maps an error code to a process exit status: 2 for caller
// mistakes, 3 for estimation failures, 1 otherwise.
func ExitCode(err error) int {
	switch GetCode(err) {
	case CodeInvalidInput, CodeInsufficientData, CodeShapeMismatch, CodeInvalidWaveletParameter,
		CodeConfigInvalid, CodeValidationError, CodeNotFound:
		return 2
	case CodeDegenerateSeries, CodeWeakInstrument, CodeRankDeficiency:
		return 3
	default:
		return 1
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
