// Package errors provides severity-aware error types.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error codes
const (
	ErrCodeParseFailed      = "PARSE_FAILED"
	ErrCodeInvalidPrecision = "INVALID_PRECISION"
	ErrCodeArticleNotFound  = "ARTICLE_NOT_FOUND"
	ErrCodeStoreFailed      = "STORE_FAILED"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
)

// Sentinels for errors.Is checks against a *CatalogError of the same code.
var (
	ErrParseFailed      = &CatalogError{Code: ErrCodeParseFailed}
	ErrInvalidPrecision = &CatalogError{Code: ErrCodeInvalidPrecision}
	ErrArticleNotFound  = &CatalogError{Code: ErrCodeArticleNotFound}
	ErrStoreFailed      = &CatalogError{Code: ErrCodeStoreFailed}
	ErrInvalidConfig    = &CatalogError{Code: ErrCodeInvalidConfig}
)

// CatalogError is a structured error with context.
type CatalogError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	// Line and Raw locate the offending source line of a load error.
	Line int    `json:"line,omitempty"`
	Raw  string `json:"raw,omitempty"`
	Err  error  `json:"-"`
}

func (e *CatalogError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
	if e.Line > 0 {
		msg = fmt.Sprintf("[%s] %s: line %d: %s", e.Severity, e.Code, e.Line, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Raw != "" {
		msg += "\n" + e.Raw
	}
	return msg
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Is matches any *CatalogError carrying the same code.
func (e *CatalogError) Is(target error) bool {
	t, ok := target.(*CatalogError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// As extracts a *CatalogError from an error chain.
func As(err error) (*CatalogError, bool) {
	var ce *CatalogError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// NewParseError creates the fatal load error for one source line.
func NewParseError(line int, raw string, cause error) *CatalogError {
	return &CatalogError{
		Code:     ErrCodeParseFailed,
		Message:  "error parsing line",
		Severity: SeverityFatal,
		Line:     line,
		Raw:      raw,
		Err:      cause,
	}
}

// NewInvalidPrecisionError rejects a negative rounding digit count.
func NewInvalidPrecisionError(digits int) *CatalogError {
	return &CatalogError{
		Code:     ErrCodeInvalidPrecision,
		Message:  fmt.Sprintf("digits must be >= 0, got: %d", digits),
		Severity: SeverityError,
	}
}

// NewArticleNotFoundError reports an unknown article number.
func NewArticleNotFoundError(articleNo string) *CatalogError {
	return &CatalogError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("Article %s not found", articleNo),
		Severity: SeverityError,
	}
}

// NewStoreError wraps a backing-store failure.
func NewStoreError(op string, cause error) *CatalogError {
	return &CatalogError{
		Code:     ErrCodeStoreFailed,
		Message:  op,
		Severity: SeverityError,
		Err:      cause,
	}
}

// NewConfigError reports invalid configuration.
func NewConfigError(cause error) *CatalogError {
	return &CatalogError{
		Code:     ErrCodeInvalidConfig,
		Message:  "invalid configuration",
		Severity: SeverityFatal,
		Err:      cause,
	}
}
