package core

import (
	"errors"
	"fmt"
)

// Analysis error kinds. Every failure raised by the engine wraps exactly one of these.
var (
	ErrInsufficientData        = errors.New("insufficient data for analysis")
	ErrInvalidInput            = errors.New("invalid input")
	ErrShapeMismatch           = errors.New("shape mismatch")
	ErrInvalidWaveletParameter = errors.New("invalid wavelet parameter")
	ErrDegenerateSeries        = errors.New("degenerate series")
	ErrWeakInstrument          = errors.New("weak instrument")
	ErrRankDeficiency          = errors.New("rank deficient design matrix")
)

// ErrorKind names the kind of an analysis failure for reporting.
type ErrorKind string

const (
	KindInsufficientData        ErrorKind = "InsufficientData"
	KindInvalidInput            ErrorKind = "InvalidInput"
	KindShapeMismatch           ErrorKind = "ShapeMismatch"
	KindInvalidWaveletParameter ErrorKind = "InvalidWaveletParameter"
	KindDegenerateSeries        ErrorKind = "DegenerateSeries"
	KindWeakInstrument          ErrorKind = "WeakInstrument"
	KindRankDeficiency          ErrorKind = "RankDeficiency"
	KindUnknown                 ErrorKind = "Unknown"
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInsufficientData, KindInsufficientData},
	{ErrInvalidInput, KindInvalidInput},
	{ErrShapeMismatch, KindShapeMismatch},
	{ErrInvalidWaveletParameter, KindInvalidWaveletParameter},
	{ErrDegenerateSeries, KindDegenerateSeries},
	{ErrWeakInstrument, KindWeakInstrument},
	{ErrRankDeficiency, KindRankDeficiency},
}

// Kind classifies err. Joined errors report the first kind found.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// Error constructors with context
func NewInsufficientDataError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}

func NewInvalidInputError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func NewShapeMismatchError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

func NewInvalidWaveletParameterError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidWaveletParameter, fmt.Sprintf(format, args...))
}

func NewDegenerateSeriesError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDegenerateSeries, fmt.Sprintf(format, args...))
}

func NewWeakInstrumentError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrWeakInstrument, fmt.Sprintf(format, args...))
}

func NewRankDeficiencyError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRankDeficiency, fmt.Sprintf(format, args...))
}

// IsInputError reports failures the caller can fix by trimming or cleaning the series.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrShapeMismatch)
}

// IsEstimationError reports failures of the regression stage.
func IsEstimationError(err error) bool {
	return errors.Is(err, ErrWeakInstrument) ||
		errors.Is(err, ErrRankDeficiency)
}
